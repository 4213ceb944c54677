package lpcnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/neurlang/vocoder/datasets"
	dataset "github.com/neurlang/vocoder/datasets/lpcnet"
	"github.com/neurlang/vocoder/parallel"
	"github.com/neurlang/vocoder/trainer"
	"gonum.org/v1/gonum/floats"
)

// votes collects the votes of one worker during a batch.
type votes struct {
	weight float64
	prior  *datasets.Pending
	inputs [Inputs]*datasets.Pending
	cond   *datasets.Pending
}

func (n *Network) newVotes(weight float64) *votes {
	v := &votes{
		weight: weight,
		prior:  n.prior.NewPending(),
		cond:   n.cond.NewPending(),
	}
	for k := range v.inputs {
		v.inputs[k] = n.inputs[k].NewPending()
	}
	return v
}

func (n *Network) merge(v *votes) {
	n.prior.Merge(v.prior)
	for k := range v.inputs {
		n.inputs[k].Merge(v.inputs[k])
	}
	n.cond.Merge(v.cond)
}

// pass scores every sample of chunk with the current weights and, when v is
// not nil, votes for the target of every sample. It returns the summed
// cross entropy and the number of samples predicted correctly.
func (n *Network) pass(data *dataset.Dataset, chunk int, v *votes) (loss float64, correct int) {
	logits := make([]float64, Classes)
	frame := data.Config.FrameSize
	var b int
	for t := 0; t < data.ChunkSamples(); t++ {
		s := data.Sample(chunk, t)
		if t%frame == 0 {
			b = n.bucket(s)
		}
		n.logits(logits, s, b)
		target := int(s.OutExc)
		loss += floats.LogSumExp(logits) - logits[target]
		if floats.MaxIdx(logits) == target {
			correct++
		}
		if v == nil {
			continue
		}
		v.prior.AddToMapping(0, target, v.weight)
		v.inputs[0].AddToMapping(int(s.Sig), target, v.weight)
		v.inputs[1].AddToMapping(int(s.Pred), target, v.weight)
		v.inputs[2].AddToMapping(int(s.InExc), target, v.weight)
		v.cond.AddToMapping(b, target, v.weight)
	}
	return
}

// trainBatch scores the chunks of one batch, adds their votes and rebuilds the
// weights. The returned loss and accuracy are those before the update.
func (n *Network) trainBatch(data *dataset.Dataset, chunks []int) (loss, accuracy float64) {
	weight := n.opts.Optimizer.Rate(n.iterations) / n.opts.Optimizer.LearningRate
	losses := make([]float64, len(chunks))
	corrects := make([]int, len(chunks))
	parallel.ForEachShard(len(chunks), n.cfg.threads(), func(_, from, to int) {
		v := n.newVotes(weight)
		for i := from; i < to; i++ {
			losses[i], corrects[i] = n.pass(data, chunks[i], v)
		}
		n.merge(v)
	})
	n.iterations++
	n.rebuild()

	samples := float64(len(chunks) * data.ChunkSamples())
	var correct int
	for i := range chunks {
		loss += losses[i]
		correct += corrects[i]
	}
	return loss / samples, float64(correct) / samples
}

// Evaluate returns the loss and accuracy of the network on the given chunks.
func (n *Network) Evaluate(data *dataset.Dataset, chunks []int) trainer.Logs {
	logs, digest := n.evaluate(data, chunks)
	slog.Debug("evaluated", "chunks", len(chunks), "digest", fmt.Sprintf("%x", digest))
	return logs
}

func (n *Network) evaluate(data *dataset.Dataset, chunks []int) (trainer.Logs, [32]byte) {
	losses := make([]float64, len(chunks))
	corrects := make([]int, len(chunks))
	digest := parallel.NewDigest(len(chunks))
	parallel.ForEach(len(chunks), n.cfg.threads(), func(i int) {
		losses[i], corrects[i] = n.pass(data, chunks[i], nil)
		digest.MustPut(i, uint16(corrects[i]))
	})
	logs := trainer.Logs{}
	if len(chunks) == 0 {
		return logs, digest.Sum()
	}
	samples := float64(len(chunks) * data.ChunkSamples())
	logs["loss"] = floats.Sum(losses) / samples
	var correct int
	for _, c := range corrects {
		correct += c
	}
	logs[trainer.MetricSparseCategoricalAccuracy] = float64(correct) / samples
	return logs, digest.Sum()
}

// Fit trains the network on data. The validation chunks are the trailing
// opts.ValidationSplit fraction of data and are never voted on. Fit stops
// with the context error when ctx is done between two batches.
func (n *Network) Fit(ctx context.Context, data *dataset.Dataset, opts trainer.FitOptions) (*trainer.History, error) {
	if !n.compiled {
		return nil, trainer.ErrNotCompiled
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if data.Config.FrameSize != n.cfg.FrameSize || data.Features.Cols != n.cfg.NbUsedFeatures {
		return nil, fmt.Errorf("%w: data has frame size %d and %d features, network expects %d and %d",
			ErrShape, data.Config.FrameSize, data.Features.Cols, n.cfg.FrameSize, n.cfg.NbUsedFeatures)
	}
	train, val := data.Split(opts.ValidationSplit)
	if len(train) == 0 {
		return nil, errors.New("no training chunks")
	}

	callbacks := trainer.Callbacks(opts.Callbacks)
	if err := callbacks.OnTrainBegin(n); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	history := &trainer.History{}
	var logs trainer.Logs
	for epoch := opts.InitialEpoch; epoch < opts.Epochs; epoch++ {
		order := slices.Clone(train)
		if opts.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var loss, accuracy float64
		var batches int
		for from := 0; from < len(order); from += opts.BatchSize {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			to := min(from+opts.BatchSize, len(order))
			l, a := n.trainBatch(data, order[from:to])
			weight := float64(to - from)
			loss += l * weight
			accuracy += a * weight

			if err := callbacks.OnBatchEnd(batches, n.metrics(l, a)); err != nil {
				return history, err
			}
			batches++
		}
		logs = n.metrics(loss/float64(len(order)), accuracy/float64(len(order)))

		if len(val) > 0 {
			sample := validationSample(val, opts.ValidationSignificance, rng)
			v := n.Evaluate(data, sample)
			logs["val_loss"] = v["loss"]
			if _, ok := logs[trainer.MetricSparseCategoricalAccuracy]; ok {
				logs["val_"+trainer.MetricSparseCategoricalAccuracy] = v[trainer.MetricSparseCategoricalAccuracy]
			}
		}

		history.Append(epoch, logs)
		slog.Info("epoch finished", "epoch", epoch+1, "of", opts.Epochs, "batches", batches,
			"iterations", n.iterations, "logs", logs)
		if err := callbacks.OnEpochEnd(epoch, logs); err != nil {
			return history, err
		}
	}
	if err := callbacks.OnTrainEnd(logs); err != nil {
		return history, err
	}
	return history, nil
}

// metrics names the loss and the compiled metrics.
func (n *Network) metrics(loss, accuracy float64) trainer.Logs {
	logs := trainer.Logs{"loss": loss}
	if slices.Contains(n.opts.Metrics, trainer.MetricSparseCategoricalAccuracy) {
		logs[trainer.MetricSparseCategoricalAccuracy] = accuracy
	}
	return logs
}

// validationSample picks a statistically sufficient subset of the validation
// chunks, or all of them without a significance level.
func validationSample(val []int, significance byte, rng *rand.Rand) []int {
	m := trainer.SampleSize(len(val), significance)
	if m >= len(val) {
		return val
	}
	picked := make([]int, 0, m)
	for _, i := range rng.Perm(len(val))[:m] {
		picked = append(picked, val[i])
	}
	slices.Sort(picked)
	return picked
}
