package lpcnet

import "fmt"

// Config describes the layout of the training streams.
type Config struct {
	FrameSize        int `yaml:"frame_size"`         // samples per frame
	FeatureChunkSize int `yaml:"feature_chunk_size"` // frames per chunk
	NbFeatures       int `yaml:"nb_features"`        // columns in the feature file
	NbUsedFeatures   int `yaml:"nb_used_features"`   // leading columns given to the model
	Delay            int `yaml:"delay"`              // feature frames lagging the speech

	ZeroFrom int `yaml:"zero_from"` // first cleared column
	ZeroTo   int `yaml:"zero_to"`   // first column after the cleared band

	PitchColumn     int `yaml:"pitch_column"`
	ContextFrames   int `yaml:"context_frames"`
	PitchEmbeddings int `yaml:"pitch_embeddings"`
}

// DefaultConfig returns the layout produced by the LPCNet feature extractor.
func DefaultConfig() Config {
	return Config{
		FrameSize:        160,
		FeatureChunkSize: 15,
		NbFeatures:       55,
		NbUsedFeatures:   38,
		ZeroFrom:         18,
		ZeroTo:           36,
		PitchColumn:      36,
		ContextFrames:    2,
		PitchEmbeddings:  256,
	}
}

// PCMChunkSize is the number of samples in one chunk.
func (c Config) PCMChunkSize() int {
	return c.FrameSize * c.FeatureChunkSize
}

// PaddedChunkSize is the number of feature rows in one chunk after padding.
func (c Config) PaddedChunkSize() int {
	return c.FeatureChunkSize + 2*c.ContextFrames
}

// Validate checks that the layout is usable.
func (c Config) Validate() error {
	switch {
	case c.FrameSize <= 0:
		return fmt.Errorf("frame size must be positive, got %d", c.FrameSize)
	case c.FeatureChunkSize <= 0:
		return fmt.Errorf("feature chunk size must be positive, got %d", c.FeatureChunkSize)
	case c.NbFeatures <= 0:
		return fmt.Errorf("feature count must be positive, got %d", c.NbFeatures)
	case c.NbUsedFeatures <= 0 || c.NbUsedFeatures > c.NbFeatures:
		return fmt.Errorf("used feature count %d not in [1, %d]", c.NbUsedFeatures, c.NbFeatures)
	case c.Delay < 0:
		return fmt.Errorf("delay must not be negative, got %d", c.Delay)
	case c.ZeroFrom < 0 || c.ZeroFrom > c.ZeroTo:
		return fmt.Errorf("bad cleared band [%d, %d)", c.ZeroFrom, c.ZeroTo)
	case c.PitchColumn < 0 || c.PitchColumn >= c.NbUsedFeatures:
		return fmt.Errorf("pitch column %d not among %d used features", c.PitchColumn, c.NbUsedFeatures)
	case c.PitchColumn >= c.ZeroFrom && c.PitchColumn < c.ZeroTo:
		return fmt.Errorf("pitch column %d lies in the cleared band [%d, %d)", c.PitchColumn, c.ZeroFrom, c.ZeroTo)
	case c.ContextFrames < 1 || c.ContextFrames > c.FeatureChunkSize:
		return fmt.Errorf("context frames %d not in [1, %d]", c.ContextFrames, c.FeatureChunkSize)
	case c.PitchEmbeddings <= 0:
		return fmt.Errorf("pitch embeddings must be positive, got %d", c.PitchEmbeddings)
	}
	return nil
}
