package core

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/log"

	"github.com/persomem/persomem-go/pkg/extract"
	"github.com/persomem/persomem-go/pkg/llm"
	"github.com/persomem/persomem-go/pkg/llm/deepseek"
	"github.com/persomem/persomem-go/pkg/llm/openai"
	"github.com/persomem/persomem-go/pkg/memctx"
	"github.com/persomem/persomem-go/pkg/store"
	"github.com/persomem/persomem-go/pkg/store/mysql"
	"github.com/persomem/persomem-go/pkg/store/postgres"
	"github.com/persomem/persomem-go/pkg/store/sqlite"
)

// Client is the top-level PersoMem client. It wires the LLM provider,
// the record store, and the extraction orchestrator behind one API:
// run extractions, persist their results, and rebuild prompt context
// from what was persisted.
type Client struct {
	config       *Config
	provider     llm.Provider
	records      store.RecordStore
	orchestrator *extract.Orchestrator
	memoryCtx    *memctx.MemoryContextProvider
	identityCtx  *memctx.IdentityContextProvider
	logger       *log.Logger
	node         *snowflake.Node
}

// NewClient creates a client from the given configuration.
//
// Parameters:
//   - config: Complete client configuration (LLM, store, extraction defaults)
//
// Returns:
//   - *Client: The client instance
//   - error: Error if configuration is invalid or a backend fails to initialize
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	provider, err := buildProvider(&config.LLM)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	records, err := buildStore(&config.Store)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	logger := log.Default()

	orchestrator, err := extract.NewOrchestrator(extract.Deps{
		Provider: provider,
		Model:    config.LLM.Model,
		Logger:   logger,
	})
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	return &Client{
		config:       config,
		provider:     provider,
		records:      records,
		orchestrator: orchestrator,
		memoryCtx:    memctx.NewMemoryContextProvider(),
		identityCtx:  memctx.NewIdentityContextProvider(),
		logger:       logger,
		node:         node,
	}, nil
}

func buildProvider(cfg *LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return openai.NewClient(&openai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "deepseek":
		return deepseek.NewClient(&deepseek.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

func buildStore(cfg *StoreConfig) (store.RecordStore, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{
			DBPath: stringValue(cfg.Config, "db_path", "./persomem.db"),
		})
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:     stringValue(cfg.Config, "host", "localhost"),
			Port:     intValue(cfg.Config, "port", 5432),
			User:     stringValue(cfg.Config, "user", "postgres"),
			Password: stringValue(cfg.Config, "password", ""),
			DBName:   stringValue(cfg.Config, "db_name", "persomem"),
			SSLMode:  stringValue(cfg.Config, "ssl_mode", "disable"),
		})
	case "mysql":
		return mysql.NewClient(&mysql.Config{
			Host:     stringValue(cfg.Config, "host", "127.0.0.1"),
			Port:     intValue(cfg.Config, "port", 3306),
			User:     stringValue(cfg.Config, "user", "root"),
			Password: stringValue(cfg.Config, "password", ""),
			DBName:   stringValue(cfg.Config, "db_name", "persomem"),
		})
	default:
		return nil, fmt.Errorf("%w: unsupported store provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

func stringValue(m map[string]interface{}, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intValue(m map[string]interface{}, key string, fallback int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// defaultOptions applies the configured extraction defaults to the
// per-call options.
func (c *Client) defaultOptions(opts *extract.Options) *extract.Options {
	out := extract.Options{}
	if opts != nil {
		out = *opts
	}
	if out.Language == "" {
		out.Language = c.config.Extraction.Language
	}
	if out.Username == "" {
		out.Username = c.config.Extraction.Username
	}
	if out.TopK == 0 {
		out.TopK = c.config.Extraction.TopK
	}
	return &out
}

// Extract runs one extraction pass for the job and persists the
// outcome.
//
// When a record store is configured and job.Force is false, the run is
// skipped if the source has not changed since the last recorded run
// for the same user and source; the returned result then has Skipped
// set and no extractor is invoked.
func (c *Client) Extract(ctx context.Context, job extract.Job, opts *extract.Options) (*extract.Result, error) {
	const op = "Extract"

	if c.records != nil && !job.Force {
		lastRun, err := c.records.LastRun(ctx, job.UserID, job.SourceID)
		if err != nil {
			return nil, NewMemoryError(op, err)
		}
		if lastRun != nil && !job.SourceUpdatedAt.After(lastRun.SourceUpdatedAt) {
			c.logger.Info("source unchanged since last run, skipping",
				"user_id", job.UserID, "source_id", job.SourceID)
			return &extract.Result{
				Job:     job,
				Outputs: map[extract.Layer]extract.LayerOutput{},
				Skipped: true,
			}, nil
		}
	}

	result, err := c.orchestrator.Run(ctx, job, c.defaultOptions(opts))
	if err != nil {
		return nil, NewMemoryError(op, err)
	}

	if c.records != nil {
		if err := c.persistResult(ctx, result); err != nil {
			// The extraction itself succeeded; report it and surface
			// the persistence failure in the log only.
			c.logger.Error("failed to persist extraction result",
				"run_id", result.RunID, "error", err)
		}
	}
	return result, nil
}

func (c *Client) persistResult(ctx context.Context, result *extract.Result) error {
	run := &store.Run{
		ID:              result.RunID,
		UserID:          result.Job.UserID,
		Source:          string(result.Job.Source),
		SourceID:        result.Job.SourceID,
		SourceUpdatedAt: result.Job.SourceUpdatedAt,
		Processed:       result.Processed,
		Succeeded:       result.Succeeded,
		Failed:          result.Failed,
	}
	if err := c.records.SaveRun(ctx, run); err != nil {
		return err
	}
	return c.records.SaveRecords(ctx, recordsFromResult(c.node, result))
}

// ExtractPersona runs the persona extractor. Persona results are
// returned to the caller and not persisted by this client.
func (c *Client) ExtractPersona(ctx context.Context, opts *extract.PersonaOptions) (*extract.PersonaResult, error) {
	out := extract.PersonaOptions{}
	if opts != nil {
		out = *opts
	}
	if out.Language == "" {
		out.Language = c.config.Extraction.Language
	}
	if out.Username == "" {
		out.Username = c.config.Extraction.Username
	}
	result, err := c.orchestrator.ExtractPersona(ctx, &out)
	if err != nil {
		return nil, NewMemoryError("ExtractPersona", err)
	}
	return result, nil
}

// BuildMemoryContext assembles the user_memories XML block from the
// user's most recent persisted records, up to the configured TopK per
// layer.
func (c *Client) BuildMemoryContext(ctx context.Context, userID string) (memctx.BuiltContext, error) {
	const op = "BuildMemoryContext"

	if c.records == nil {
		return memctx.BuiltContext{}, NewMemoryError(op, ErrNoStore)
	}
	limit := c.config.Extraction.TopK
	if limit == 0 {
		limit = 10
	}

	input := memctx.MemoryInput{UserID: userID}
	for _, layer := range []extract.Layer{
		extract.LayerActivity, extract.LayerContext,
		extract.LayerExperience, extract.LayerPreference,
	} {
		records, err := c.records.RecentByLayer(ctx, userID, string(layer), limit)
		if err != nil {
			return memctx.BuiltContext{}, NewMemoryError(op, err)
		}
		for _, record := range records {
			switch layer {
			case extract.LayerActivity:
				if r, err := activityFromStored(record); err == nil {
					input.Activities = append(input.Activities, r)
				}
			case extract.LayerContext:
				if r, err := contextFromStored(record); err == nil {
					input.Contexts = append(input.Contexts, r)
				}
			case extract.LayerExperience:
				if r, err := experienceFromStored(record); err == nil {
					input.Experiences = append(input.Experiences, r)
				}
			case extract.LayerPreference:
				if r, err := preferenceFromStored(record); err == nil {
					input.Preferences = append(input.Preferences, r)
				}
			}
		}
	}
	return c.memoryCtx.Build(input), nil
}

// BuildIdentityContext assembles the user_memories_identities XML block
// from the user's most recent persisted identity records.
func (c *Client) BuildIdentityContext(ctx context.Context, userID string) (memctx.BuiltContext, error) {
	const op = "BuildIdentityContext"

	if c.records == nil {
		return memctx.BuiltContext{}, NewMemoryError(op, ErrNoStore)
	}
	limit := c.config.Extraction.TopK
	if limit == 0 {
		limit = 10
	}

	records, err := c.records.RecentByLayer(ctx, userID, string(extract.LayerIdentity), limit)
	if err != nil {
		return memctx.BuiltContext{}, NewMemoryError(op, err)
	}
	input := memctx.IdentityInput{UserID: userID}
	for _, record := range records {
		if pair, err := identityPairFromStored(record); err == nil {
			input.Pairs = append(input.Pairs, pair)
		}
	}
	return c.identityCtx.Build(input), nil
}

// RecentFragments returns the user's most recent persisted prompt
// fragments for one layer, newest first, for use as retrieved context.
func (c *Client) RecentFragments(ctx context.Context, userID string, layer extract.Layer, limit int) ([]string, error) {
	if c.records == nil {
		return nil, NewMemoryError("RecentFragments", ErrNoStore)
	}
	records, err := c.records.RecentByLayer(ctx, userID, string(layer), limit)
	if err != nil {
		return nil, NewMemoryError("RecentFragments", err)
	}
	fragments := make([]string, 0, len(records))
	for _, record := range records {
		fragments = append(fragments, record.Content)
	}
	return fragments, nil
}

// Orchestrator exposes the underlying extraction orchestrator for
// callers that manage retrieval and persistence themselves.
func (c *Client) Orchestrator() *extract.Orchestrator {
	return c.orchestrator
}

// Close closes the client and releases provider and store resources.
func (c *Client) Close() error {
	var firstErr error
	if err := c.provider.Close(); err != nil {
		firstErr = err
	}
	if c.records != nil {
		if err := c.records.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return NewMemoryError("Close", firstErr)
}
