package datasets

// LabeledSampler draws labeled batches with a fixed good share, flattening
// each record into one input vector. It satisfies simple.Sampler.
type LabeledSampler struct {
	Source       BatchSource
	GoodFraction float64
}

// SampleLabeled returns batchSize inputs (grasp followed by features) and
// their 0/1 labels.
func (s *LabeledSampler) SampleLabeled(batchSize int) ([][]float32, []float32, error) {
	batch, err := s.Source.RandomBatch(batchSize, s.GoodFraction)
	if err != nil {
		return nil, nil, err
	}
	return batch.Inputs(), batch.Labels, nil
}
