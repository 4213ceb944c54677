package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neurlang/vocoder/config"
	dataset "github.com/neurlang/vocoder/datasets/lpcnet"
	"github.com/neurlang/vocoder/history"
	network "github.com/neurlang/vocoder/net/lpcnet"
	"github.com/neurlang/vocoder/session"
	"github.com/neurlang/vocoder/trainer"
)

var (
	cfgFile      string
	resumePath   string
	historyDir   string
	logLevel     string
	memoryLimit  string
	cpuProfile   string
	frameSize    int
	delay        int
	epochs       int
	initialEpoch int
	batchSize    int
	threads      int
	validation   float64
)

var rootCmd = &cobra.Command{
	Use:   "train_lpcnet <features.f32> <data.u8> <prefix>",
	Short: "Train an LPCNet excitation predictor",
	Long: `Train an LPCNet excitation predictor.

The feature file holds little-endian float32 frames of 55 features. The data
file holds 4 mu-law bytes per sample: signal, prediction, input excitation and
output excitation. A checkpoint <prefix>_NN.h5 is written after every epoch.

Settings come from the defaults, then the --config YAML file, then the flags.`,
	Args:          cobra.ExactArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	def := config.Default()
	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "YAML configuration file")
	f.StringVar(&resumePath, "resume", "", "checkpoint to load before training")
	f.StringVar(&historyDir, "history", "", "badger directory recording the logs of every epoch")
	f.StringVar(&logLevel, "log_level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&memoryLimit, "memory_limit", "", "soft memory limit, such as 8GiB")
	f.StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	f.IntVar(&frameSize, "frame_size", def.Data.FrameSize, "samples per feature frame")
	f.IntVar(&delay, "delay", def.Data.Delay, "feature frames the features lag behind the speech")
	f.IntVar(&epochs, "epochs", def.Epochs, "number of epochs")
	f.IntVar(&initialEpoch, "initial_epoch", 0, "epoch to start from when resuming")
	f.IntVar(&batchSize, "batch_size", def.BatchSize, "chunks per batch")
	f.IntVar(&threads, "threads", 0, "worker threads (default: logical cores)")
	f.Float64Var(&validation, "validation_split", def.ValidationSplit, "trailing fraction of chunks held out")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides the configuration with the flags given explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("frame_size") {
		cfg.Data.FrameSize = frameSize
	}
	if f.Changed("delay") {
		cfg.Data.Delay = delay
	}
	if f.Changed("epochs") {
		cfg.Epochs = epochs
	}
	if f.Changed("batch_size") {
		cfg.BatchSize = batchSize
	}
	if f.Changed("validation_split") {
		cfg.ValidationSplit = validation
	}
	if f.Changed("threads") {
		cfg.Session.Threads = threads
	}
	if f.Changed("memory_limit") {
		cfg.Session.MemoryLimit = memoryLimit
	}
}

func run(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	featureFile, pcmFile, prefix := args[0], args[1], args[2]
	ctx := cmd.Context()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	sess, err := session.New(cfg.Session)
	if err != nil {
		return err
	}
	cfg.Resolve(sess)
	if err := cfg.Validate(); err != nil {
		return err
	}

	stop, err := startProfile(cpuProfile)
	if err != nil {
		return err
	}
	defer stop()

	data, err := dataset.Load(featureFile, pcmFile, cfg.Data)
	if err != nil {
		return err
	}
	slog.Info("ulaw std", "std", data.OutExcStd(), "linear_std", data.OutExcLinearStd())

	model, err := network.New(cfg.Network)
	if err != nil {
		return err
	}
	err = model.Compile(trainer.CompileOptions{
		Optimizer: cfg.Optimizer,
		Loss:      trainer.LossSparseCategoricalCrossentropy,
		Metrics:   []string{trainer.MetricSparseCategoricalAccuracy},
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(model.Summary()))

	if err := trainer.Resume(model, resumePath); err != nil {
		return err
	}

	callbacks := []trainer.Callback{
		trainer.NewCheckpoint(prefix),
		cfg.NewSparsify(),
	}
	if historyDir != "" {
		store, err := history.OpenBadger(historyDir)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		rec := history.NewRecorder(ctx, store)
		callbacks = append(callbacks, rec)
		slog.Info("recording history", "dir", historyDir, "run", rec.Run)
	}

	if err := cfg.Save(prefix + "_config.yaml"); err != nil {
		return err
	}

	opts := cfg.FitOptions(callbacks...)
	opts.InitialEpoch = initialEpoch
	h, err := model.Fit(ctx, data, opts)
	if err != nil {
		return err
	}
	slog.Info("training finished", "epochs", len(h.Epoch), "logs", h.Last())
	return nil
}
