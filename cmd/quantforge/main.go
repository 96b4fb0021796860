package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"quantforge/internal/calibration"
	"quantforge/internal/config"
	"quantforge/internal/gguf"
	"quantforge/internal/ledger"
	"quantforge/internal/pipeline"
	"quantforge/internal/publish"
	"quantforge/internal/runner"
)

// Command-line surface. The hf-user, hf-token and llama-path flags fall back
// to HF_USER, HF_TOKEN and LLAMA_PATH when left empty.
var (
	quantsFlag    = flag.String("quants", "", "comma-separated quant levels to produce (default: every non-imatrix level)")
	verboseFlag   = flag.Bool("verbose", false, "narrate each stage and let external tools print their own progress")
	precisionFlag = flag.String("full-precision", "f16", "full-precision format to convert to and quantize from: f16, bf16 or f32")
	fpFlag        = flag.String("fp", "", "existing full-precision GGUF file; skips the download and conversion stages")
	imatrixFlag   = flag.String("imatrix", "", "existing importance matrix file; skips calibration download and matrix generation")
	skipDownload  = flag.Bool("skip-download", false, "assume the model's source files are already on disk")
	skipUpload    = flag.Bool("skip-upload", false, "do not publish produced artifacts")
	onlyUpload    = flag.Bool("only-upload", false, "skip every producing stage and publish the output directory as-is")
	updateLlama   = flag.Bool("update-llama", false, "update and rebuild the llama.cpp checkout first, cloning it if absent")
	llamaPath     = flag.String("llama-path", "", "path to the llama.cpp checkout (default $LLAMA_PATH or ~/code/llama.cpp)")
	hfUser        = flag.String("hf-user", "", "huggingface username for publication (default $HF_USER)")
	hfToken       = flag.String("hf-token", "", "huggingface api token for publication (default $HF_TOKEN)")
	envFile       = flag.String("env", "", "path to load env from")
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %s [flags] <model-id>\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(out, "Converts a huggingface model into quantized GGUF variants and publishes them.\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	modelID := flag.Arg(0)

	setupLogging(*verboseFlag)

	config.LoadEnvFile(*envFile)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	levels, err := gguf.ParseLevels(*quantsFlag)
	if err != nil {
		log.Fatalf("invalid -quants: %v", err)
	}
	precision, err := gguf.ParsePrecision(*precisionFlag)
	if err != nil {
		log.Fatalf("invalid -full-precision: %v", err)
	}

	layout := gguf.NewLayout(modelID, precision,
		config.ExpandUser(*fpFlag), config.ExpandUser(*imatrixFlag))

	user := fallback(*hfUser, cfg.HFUser)
	token := fallback(*hfToken, cfg.HFToken)
	llama := config.ExpandUser(fallback(*llamaPath, cfg.LlamaPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := runner.New()
	led := openLedger(cfg)

	var coord *publish.Coordinator
	if !*skipUpload {
		if user == "" {
			slog.Warn("no huggingface user configured, publication will fail", "hint", "set -hf-user or HF_USER")
		}
		coord = newCoordinator(run, layout, user, token, cfg, led, len(levels))
	}

	pipe := pipeline.New(run, layout, pipeline.Options{
		Quants:       levels,
		LlamaPath:    llama,
		UpdateLlama:  *updateLlama,
		SkipDownload: *skipDownload,
		OnlyUpload:   *onlyUpload,
		Verbose:      *verboseFlag,
	}, calibration.NewFetcher(cfg.CalibrationDataURL, *verboseFlag), coord, led)

	switch err := pipe.Run(ctx); {
	case err == nil:
		slog.Info("done", "model", layout.Name)
	case runner.IsCancelled(err):
		slog.Warn("run cancelled", "model", layout.Name)
		os.Exit(130)
	default:
		slog.Error("run failed", "model", layout.Name, "error", err)
		os.Exit(1)
	}
}

// setupLogging keeps the success path silent unless verbose is requested;
// warnings and the final failure always surface.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func fallback(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return envValue
}

// openLedger connects the run-history database when LEDGER_DSN is set. The
// ledger is advisory, so a connection failure downgrades to a warning and the
// run proceeds without history.
func openLedger(cfg *config.Config) *ledger.Ledger {
	if cfg.LedgerDSN == "" {
		return nil
	}
	led, err := ledger.Open(cfg.LedgerDSN)
	if err != nil {
		slog.Warn("run history disabled", "error", err)
		return nil
	}
	return led
}

// newCoordinator assembles the publication path: the huggingface hub target,
// plus an S3 mirror when a bucket is configured, every run recorded to the
// ledger. The queue holds one slot per quantization job plus the final drain
// trigger, so enqueueing never blocks the pipeline.
func newCoordinator(r runner.StepRunner, layout gguf.Layout, user, token string, cfg *config.Config, led *ledger.Ledger, quants int) *publish.Coordinator {
	targets := []publish.Publisher{publish.NewHub(r, layout, user, token)}

	if cfg.MirrorBucket != "" {
		mirror, err := publish.NewS3Mirror(publish.S3MirrorConfig{
			Bucket:          cfg.MirrorBucket,
			Prefix:          cfg.MirrorPrefix,
			Endpoint:        cfg.MirrorEndpointURL,
			Region:          cfg.MirrorRegion,
			AccessKeyID:     cfg.MirrorAccessKeyID,
			SecretAccessKey: cfg.MirrorSecretAccessKey,
		}, layout)
		if err != nil {
			log.Fatalf("error creating s3 mirror: %v", err)
		}
		targets = append(targets, mirror)
	}

	for i, target := range targets {
		targets[i] = publish.Recorded(target, led)
	}
	return publish.NewCoordinator(publish.Multi(targets...), quants+1)
}
