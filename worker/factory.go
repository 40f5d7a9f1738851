package worker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/embeddings"
	"github.com/snow-ghost/sleuth/interp"
	"github.com/snow-ghost/sleuth/interp/golang"
	"github.com/snow-ghost/sleuth/interp/wasm"
	kbfs "github.com/snow-ghost/sleuth/kb/fs"
	"github.com/snow-ghost/sleuth/kb/indexer"
	"github.com/snow-ghost/sleuth/llm"
	llmmock "github.com/snow-ghost/sleuth/llm/mock"
	llmopenai "github.com/snow-ghost/sleuth/llm/openai"
	"github.com/snow-ghost/sleuth/pkg/limiter"
	"github.com/snow-ghost/sleuth/pkg/logging"
	"github.com/snow-ghost/sleuth/pkg/tokens"
	"github.com/snow-ghost/sleuth/pkg/tracing"
	"github.com/snow-ghost/sleuth/policy/local"
	"github.com/snow-ghost/sleuth/scoring"
	"github.com/snow-ghost/sleuth/store/memory"
	"github.com/snow-ghost/sleuth/store/sqlite"
	"github.com/snow-ghost/sleuth/vectordb"
	"github.com/snow-ghost/sleuth/worker/telemetry"
	"go.uber.org/zap"
)

// hashDimension is the vector size used without an embedding backend.
const hashDimension = 256

// Engine is a fully wired orchestrator with the resources it owns.
type Engine struct {
	Config       *Config
	Logger       *zap.Logger
	Store        core.Store
	Tree         *kbfs.Tree
	Executor     *interp.Executor
	Indexer      *indexer.Indexer
	Resolver     *Resolver
	Synthesizer  *Synthesizer
	Orchestrator *Orchestrator
	Recorder     *telemetry.Recorder
	Tracer       *tracing.Tracer

	closers []func(context.Context) error
}

// NewEngine builds every component from config. gen, when non-nil, is used
// instead of the configured provider.
func NewEngine(ctx context.Context, config *Config, logger *zap.Logger, gen core.Generator) (_ *Engine, err error) {
	logger = logging.OrNop(logger)
	e := &Engine{Config: config, Logger: logger}
	defer func() {
		if err != nil {
			_ = e.Close(context.WithoutCancel(ctx))
		}
	}()

	e.Recorder = telemetry.New(logger)
	e.Tracer, err = tracing.NewTracer(config.Tracing)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, e.Tracer.Shutdown)

	e.Store, err = openStore(config.Store)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func(context.Context) error { return e.Store.Close() })

	scratch := config.Skills.ScratchDir
	if scratch == "" {
		scratch, err = os.MkdirTemp("", "sleuth-scratch-")
		if err != nil {
			return nil, fmt.Errorf("failed to create scratch directory: %w", err)
		}
		dir := scratch
		e.closers = append(e.closers, func(context.Context) error { return os.RemoveAll(dir) })
	}

	wasmRuntime, err := wasm.NewInterpreter(ctx, config.Skills.WasmCache)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, wasmRuntime.Close)
	router := interp.NewRouter().
		Register(interp.RuntimeGo, golang.NewInterpreter("")).
		Register(wasm.RuntimeName, wasmRuntime)
	e.Executor = interp.NewExecutor(router, local.NewGuard(config.Skills.Runtimes), scratch, logger.Named("executor"))

	e.Tree = kbfs.NewTree(config.Skills.Root, logger.Named("skills"))

	if gen == nil {
		gen, err = newGenerator(config.LLM)
		if err != nil {
			return nil, err
		}
	}
	counter := tokens.Counter(tokens.ApproxCounter{})
	if config.LLM.Provider == "openai" {
		counter = tokens.ForModel(config.LLM.Model)
	}
	retry := limiter.DefaultRetryConfig()
	retry.MaxRetries = config.LLM.MaxRetries
	gen = llm.NewGuarded(gen, llm.Options{
		Provider:          config.LLM.Provider,
		Model:             config.LLM.Model,
		MaxPromptTokens:   config.LLM.MaxPromptTokens,
		RequestsPerMinute: config.LLM.RequestsPerMinute,
		Timeout:           config.LLM.Timeout,
		Retry:             retry,
		Counter:           counter,
		Tracer:            e.Tracer,
		Logger:            logger.Named("llm"),
		Observe:           e.Recorder.ObserveGeneration,
	})

	embedder, err := newEmbedder(config.LLM)
	if err != nil {
		return nil, err
	}
	e.Indexer = indexer.NewIndexer(embedder, vectordb.NewMemoryVectorStore(embedder.Dimension()), e.Store, logger.Named("indexer"))
	if _, err := e.Indexer.Rebuild(ctx); err != nil {
		logger.Warn("failed to build skill index", zap.Error(err))
	}

	e.Synthesizer = NewSynthesizer(gen, e.Executor, e.Store, e.Tree, e.Indexer, counter, SynthesizerOptions{
		MaxAttempts:  config.Synthesis.MaxAttempts,
		Exemplars:    config.Synthesis.Exemplars,
		Hints:        config.Synthesis.Hints,
		Timeout:      config.Orchestrator.SkillTimeout,
		PromptBudget: config.LLM.MaxPromptTokens / 2,
	}, e.Recorder, e.Tracer)

	e.Resolver, err = NewResolver(e.Store, e.Tree, e.Synthesizer, e.Indexer, config.Skills.CacheSize, e.Recorder)
	if err != nil {
		return nil, err
	}

	e.Orchestrator = NewOrchestrator(Components{
		Store:      e.Store,
		Formulator: NewFormulator(gen, e.Store, config.Orchestrator.PoisonToken, e.Recorder),
		Planner:    NewPlanner(gen, e.Store, config.Orchestrator.PoisonToken, e.Recorder),
		Resolver:   e.Resolver,
		Executor:   e.Executor,
		Scorer:     scoring.NewScorer(e.Store),
		Recorder:   e.Recorder,
		Tracer:     e.Tracer,
	}, config.Orchestrator)

	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

func openStore(config StoreConfig) (core.Store, error) {
	switch config.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite", "":
		st, err := sqlite.Open(config.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", config.Driver)
}

func newGenerator(config LLMConfig) (core.Generator, error) {
	switch config.Provider {
	case "mock":
		if config.MockScript != "" {
			g, err := llmmock.LoadScript(config.MockScript)
			if err != nil {
				return nil, err
			}
			return g, nil
		}
		return llmmock.New(), nil
	case "openai":
		g, err := llmopenai.New(llmopenai.Config{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			Temperature: float32(config.Temperature),
			MaxTokens:   config.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
}

// newEmbedder uses the OpenAI embeddings endpoint when a model and key are
// configured, otherwise the local hash embedder.
func newEmbedder(config LLMConfig) (embeddings.Embedder, error) {
	if config.EmbeddingModel == "" || config.APIKey == "" {
		return embeddings.NewHashEmbedder(hashDimension), nil
	}
	ec := embeddings.DefaultConfig()
	ec.Model = config.EmbeddingModel
	emb, err := embeddings.NewOpenAIEmbedder(config.APIKey, config.BaseURL, ec)
	if err != nil {
		return nil, err
	}
	return emb, nil
}
