package lpcnet

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
)

// ReadPCM reads the whole interleaved mu-law stream.
func ReadPCM(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// ReadFeatures reads the whole little-endian float32 feature stream. A
// trailing partial value is dropped.
func ReadFeatures(r io.Reader) ([]float32, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return out, nil
}

// FrameCount is the number of whole chunks usable for training. It is
// computed from the PCM length and limited by what the delayed feature stream
// can fill.
func FrameCount(pcmBytes, features int, cfg Config) int {
	nb := pcmBytes / (4 * cfg.PCMChunkSize())
	avail := features - cfg.Delay*cfg.NbFeatures
	if avail < 0 {
		avail = 0
	}
	if nbf := avail / (cfg.FeatureChunkSize * cfg.NbFeatures); nbf < nb {
		nb = nbf
	}
	return nb
}

// Truncate cuts both streams to a whole number of chunks. The feature stream
// first skips cfg.Delay frames.
func Truncate(data []byte, features []float32, cfg Config) ([]byte, []float32, int) {
	nb := FrameCount(len(data), len(features), cfg)
	off := cfg.Delay * cfg.NbFeatures
	data = data[:nb*4*cfg.PCMChunkSize()]
	if off > len(features) {
		off = len(features)
	}
	features = features[off : off+nb*cfg.FeatureChunkSize*cfg.NbFeatures]
	return data, features, nb
}

// Prepare runs the in-memory pipeline over already loaded streams.
func Prepare(data []byte, raw []float32, cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, raw, nb := Truncate(data, raw, cfg)

	channels := Deinterleave(data)

	features := SelectFeatures(raw, nb, cfg)
	ZeroBand(&features, cfg.ZeroFrom, cfg.ZeroTo)
	features = PadContext(features, cfg.ContextFrames)

	periods, err := Periods(features, cfg.PitchColumn, cfg.PitchEmbeddings)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Config:   cfg,
		Channels: channels,
		Features: features,
		Periods:  periods,
		chunks:   nb,
	}, nil
}

// MaxClippedFraction is the share of saturated target bytes above which Load
// warns.
const MaxClippedFraction = 0.01

// Load reads both files and prepares the dataset.
func Load(featurePath, pcmPath string, cfg Config) (*Dataset, error) {
	pf, err := os.Open(pcmPath)
	if err != nil {
		return nil, err
	}
	data, err := ReadPCM(pf)
	pf.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pcmPath, err)
	}

	ff, err := os.Open(featurePath)
	if err != nil {
		return nil, err
	}
	raw, err := ReadFeatures(ff)
	ff.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", featurePath, err)
	}

	d, err := Prepare(data, raw, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("dataset loaded",
		"pcm", pcmPath, "features", featurePath,
		"chunks", d.Chunks(), "samples", d.Channels.Len(),
		"dropped_bytes", len(data)-4*d.Channels.Len())
	if clipped := d.ClippedFraction(); clipped > MaxClippedFraction {
		slog.Warn("excitation saturates, check the data gain", "pcm", pcmPath, "clipped", clipped)
	}
	return d, nil
}
