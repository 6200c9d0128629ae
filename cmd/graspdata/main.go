// Command graspdata walks a sharded grasp dataset: it reads records, samples
// labeled batches, plots feature distributions and trains a small grasp
// success classifier.
package main

import (
	"fmt"
	"os"

	"github.com/Noofbiz/graspData/config"
	"github.com/Noofbiz/graspData/datasets"
	"github.com/Noofbiz/graspData/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
	rootDir    string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "graspdata",
	Short: "Read, sample and train on sharded grasp datasets",
	Long: `graspdata walks a grasp dataset laid out as

  <root>/<N>_hooks[_<shape>]/dir_<i>/{good,bad}_grasps_<j>.npy

one shard at a time, cycling through directories and files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if rootDir != "" {
			cfg.Reader.Root = rootDir
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "graspdata.yaml", "path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "dataset root (overrides reader.root)")

	readCmd.Flags().IntVar(&readCount, "n", 10, "number of good records to read")

	batchCmd.Flags().IntVar(&batchSize, "size", 0, "batch size (defaults to sampling.batch_size)")
	batchCmd.Flags().Float64Var(&goodFraction, "good-fraction", -1, "share of good grasps (defaults to sampling.good_fraction)")

	plotCmd.Flags().IntVar(&plotBatches, "batches", 4, "number of batches to sample, one per shard")
	plotCmd.Flags().IntVar(&plotColumn, "column", 0, "feature column to histogram")
	plotCmd.Flags().StringVar(&plotOut, "out", "output/features.png", "output PNG path")

	rootCmd.AddCommand(readCmd, batchCmd, plotCmd, trainCmd)
}

// openReader builds a reader from the loaded configuration.
func openReader() (*datasets.ShardedReader, error) {
	reader, err := datasets.NewShardedReader(cfg.ReaderConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open grasp dataset: %w", err)
	}
	logger.Info("opened grasp dataset",
		zap.String("path", reader.Path()),
		zap.Stringer("shard", reader.Addr()))
	return reader, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
