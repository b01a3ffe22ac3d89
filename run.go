package main

import (
	"context"
	"fmt"
	"io"

	"flux_cli/core"
	"flux_cli/db"
	"flux_cli/fluxruntime"
	"flux_cli/imagegen"
	"flux_cli/logging"
	"flux_cli/shutdown"

	"go.uber.org/zap"
)

// Replaced in tests.
var (
	newEngine = func() fluxruntime.Engine {
		return fluxruntime.NewReferenceEngine(fluxruntime.WithRequireWeights(true))
	}
	newAssetProvider = func(cacheDir string, onFile func(string, core.ProgressInfo)) imagegen.AssetProvider {
		return core.NewModelManager(cacheDir, nil, core.WithFileProgress(onFile))
	}
)

// referenceEngineNotice is shown before a run on the built-in engine.
const referenceEngineNotice = "Note: rendering with the built-in reference engine. " +
	"FLUX weights are downloaded and checked, but the image is synthesized from the prompt and seed without them."

// Cleanup priorities; lower runs first.
const (
	cleanupHistoryDB = 10
	cleanupLogger    = 90
)

// runGenerate resolves the configuration and runs one generation.
// On failure *exitCode is set to the code the process should exit with.
func runGenerate(ctx context.Context, opts *options, stdout, stderr io.Writer, exitCode *int) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logging.NewLogger(logging.Options{
		Development:  opts.dev,
		FilePath:     opts.logFile,
		Console:      stderr,
		QuietConsole: !opts.dev,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	handler := shutdown.NewHandler(ctx, logger)
	handler.Register("logger", cleanupLogger, func(context.Context) error {
		// Sync on a terminal reports EINVAL; nothing is lost
		logger.Sync()
		return nil
	})
	handler.Start()
	defer func() {
		if err != nil {
			code := handler.ExitCodeFor(err)
			*exitCode = code
			if core.IsSignalExit(code) {
				logger.Warn("run interrupted", zap.String("exit", core.ExitCodeName(code)), zap.Error(err))
			} else {
				logger.Error("run failed",
					zap.String("exit", core.ExitCodeName(code)),
					zap.String("error_code", core.GetErrorCode(err)),
					zap.Error(err))
			}
		}
		if closeErr := handler.Close(context.Background()); closeErr != nil {
			fmt.Fprintf(stderr, "Warning: cleanup failed: %v\n", closeErr)
		}
	}()

	out := newConsole(stdout, opts.model)

	cfg, warnings, err := core.ResolveRunConfiguration(core.ResolveInput{
		VariantToken:   opts.model,
		Credential:     opts.hfToken,
		CredentialFile: core.DefaultCredentialFile(),
		LoRA:           opts.loraPath,
		InitImagePath:  opts.initPath,
		Float16:        opts.float16,
		Quantize:       opts.quantize,
	})
	if err != nil {
		return err
	}
	for _, w := range warnings {
		out.warn(w)
		logger.Warn(w)
	}

	logger.Info("run configured",
		zap.String("variant", cfg.Variant.Token()),
		zap.String("precision", string(cfg.Precision)),
		zap.Bool("quantize", cfg.Quantize),
		zap.Bool("credential", cfg.HasCredential()),
		zap.String("cache_dir", opts.cacheDir))

	procOpts := []imagegen.ProcessorOption{
		imagegen.WithHooks(imagegen.Hooks{
			AssetProgress: out.assetProgress,
			Started:       func(imagegen.Request) { out.summary(opts, cfg) },
			Step:          out.step,
			Stage:         out.stage,
		}),
	}

	if !opts.noHistory {
		database, err := db.Open(opts.historyDB)
		if err != nil {
			logger.Warn("run history unavailable", zap.String("path", opts.historyDB), zap.Error(err))
		} else {
			handler.Register("history-db", cleanupHistoryDB, func(context.Context) error {
				return database.Close()
			})
			procOpts = append(procOpts, imagegen.WithRecorder(db.NewRepository(database)))
		}
	}

	engine := newEngine()
	if _, ok := engine.(*fluxruntime.ReferenceEngine); ok {
		out.warn(referenceEngineNotice)
		logger.Warn("using reference engine", zap.String("engine", "reference"))
	}

	processor, err := imagegen.NewProcessor(engine, newAssetProvider(opts.cacheDir, out.fileProgress), logger, procOpts...)
	if err != nil {
		return err
	}

	req := imagegen.Request{
		Config:     cfg,
		Prompt:     opts.prompt,
		Width:      opts.width,
		Height:     opts.height,
		Steps:      opts.steps,
		Guidance:   opts.guidance,
		OutputPath: opts.output,
	}
	if opts.hasSeed {
		seed := opts.seed
		req.Seed = &seed
	}

	result, err := processor.Process(handler.Context(), req)
	if err != nil {
		return err
	}

	out.saved(result.OutputPath)
	return nil
}
