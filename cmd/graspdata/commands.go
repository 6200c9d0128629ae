package main

import (
	"fmt"

	"github.com/Noofbiz/graspData/datasets"
	"github.com/Noofbiz/graspData/simple"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	readCount int

	batchSize    int
	goodFraction float64

	plotBatches int
	plotColumn  int
	plotOut     string
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read good records sequentially across shards",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := openReader()
		if err != nil {
			return err
		}
		last := reader.Addr()
		for i := range readCount {
			rec, err := reader.NextGoodRecord()
			if err != nil {
				return fmt.Errorf("failed to read record %d: %w", i, err)
			}
			if rec.Addr != last {
				logger.Info("moved to shard", zap.Stringer("shard", rec.Addr))
				last = rec.Addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d grasp=%v features=%d\n",
				rec.Addr, rec.Index, rec.Grasp, len(rec.Feature))
		}
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Sample one labeled batch from the first shard",
	RunE: func(cmd *cobra.Command, args []string) error {
		size := cfg.Sampling.BatchSize
		if batchSize > 0 {
			size = batchSize
		}
		fraction := cfg.Sampling.GoodFraction
		if goodFraction >= 0 {
			fraction = goodFraction
		}

		reader, err := openReader()
		if err != nil {
			return err
		}
		batch, err := reader.RandomBatch(size, fraction)
		if err != nil {
			return fmt.Errorf("failed to sample batch: %w", err)
		}
		grasps, features, labels, err := batch.ToGomlxTensors()
		if err != nil {
			return err
		}

		good := 0
		for _, l := range batch.Labels {
			if l == 1 {
				good++
			}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "grasps:   %s\n", grasps.Shape())
		fmt.Fprintf(out, "features: %s\n", features.Shape())
		if labels != nil {
			fmt.Fprintf(out, "labels:   %s (%d good, %d bad)\n", labels.Shape(), good, batch.Len()-good)
		}
		return nil
	},
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Histogram one feature column for good vs bad grasps",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := openReader()
		if err != nil {
			return err
		}
		var good, bad []float64
		for i := range plotBatches {
			if i > 0 {
				if err := reader.AdvanceToNextShard(); err != nil {
					return err
				}
			}
			batch, err := reader.RandomBatch(cfg.Sampling.BatchSize, cfg.Sampling.GoodFraction)
			if err != nil {
				return fmt.Errorf("failed to sample batch on %s: %w", reader.Addr(), err)
			}
			g, b, err := splitColumn(batch, plotColumn)
			if err != nil {
				return err
			}
			good = append(good, g...)
			bad = append(bad, b...)
		}
		if err := plotFeatureHistogram(plotOut, plotColumn, good, bad); err != nil {
			return fmt.Errorf("failed to plot features: %w", err)
		}
		logger.Info("wrote feature histogram",
			zap.String("out", plotOut),
			zap.Int("good", len(good)),
			zap.Int("bad", len(bad)))
		return nil
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the grasp success classifier on sampled batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := openReader()
		if err != nil {
			return err
		}
		// probe once for the input width
		probe, err := reader.RandomBatch(1, 1)
		if err != nil {
			return fmt.Errorf("failed to probe input width: %w", err)
		}

		t := cfg.Training
		model, err := simple.NewModel(simple.Config{
			HiddenSizes:   t.HiddenSizes,
			InputDim:      probe.Grasps.Cols + probe.Features.Cols,
			LearningRate:  t.LearningRate,
			Epochs:        t.Epochs,
			StepsPerEpoch: t.StepsPerEpoch,
			BatchSize:     cfg.Sampling.BatchSize,
			Seed:          t.Seed,
		})
		if err != nil {
			return err
		}

		sampler := &shardRotatingSampler{
			LabeledSampler:  datasets.LabeledSampler{Source: reader, GoodFraction: cfg.Sampling.GoodFraction},
			batchesPerShard: cfg.Sampling.BatchesPerShard,
		}
		history, err := model.TrainWithSampler(sampler)
		for epoch, loss := range history {
			logger.Info("epoch done", zap.Int("epoch", epoch+1), zap.Float64("loss", loss))
		}
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}
		return nil
	},
}

// shardRotatingSampler moves the source to the next shard every
// batchesPerShard batches. Zero never rotates.
type shardRotatingSampler struct {
	datasets.LabeledSampler
	batchesPerShard int
	drawn           int
}

func (s *shardRotatingSampler) SampleLabeled(batchSize int) ([][]float32, []float32, error) {
	if s.batchesPerShard > 0 && s.drawn > 0 && s.drawn%s.batchesPerShard == 0 {
		if err := s.Source.AdvanceToNextShard(); err != nil {
			return nil, nil, err
		}
	}
	s.drawn++
	return s.LabeledSampler.SampleLabeled(batchSize)
}
