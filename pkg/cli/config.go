package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/adapter"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/policy"
	"github.com/m-mizutani/spotter/pkg/repository"
	"github.com/m-mizutani/spotter/pkg/tool"
	"github.com/m-mizutani/spotter/pkg/tool/workout"
	"github.com/m-mizutani/spotter/pkg/usecase/calendar"
	"github.com/m-mizutani/spotter/pkg/usecase/chat"
	"github.com/m-mizutani/spotter/pkg/usecase/memory"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// config holds configuration values
type config struct {
	// Storage
	dbPath   string
	timezone string

	// Logging
	logLevel  string
	logFormat string

	// Adapters
	geminiAPIKey    string
	geminiProject   string
	geminiLocation  string
	geminiModel     string
	credentialsFile string
	archiveBucket   string
	archivePrefix   string

	// Agent
	maxToolCalls int64

	// Proposals
	proposalStore     string
	firestoreProject  string
	firestoreDatabase string
	proposalTTL       time.Duration
	policyDir         string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Path to the SQLite database",
			Value:       repository.DefaultDBPath(),
			Sources:     cli.EnvVars("SPOTTER_DB"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "timezone",
			Aliases:     []string{"tz"},
			Usage:       "IANA timezone used to resolve dates and weekdays",
			Value:       "UTC",
			Sources:     cli.EnvVars("SPOTTER_TIMEZONE", "TZ"),
			Destination: &cfg.timezone,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "warn",
			Sources:     cli.EnvVars("SPOTTER_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("SPOTTER_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key (takes precedence over Vertex AI)",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model name",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.IntFlag{
			Name:        "max-tool-calls",
			Usage:       "Maximum model invocations per message",
			Value:       chat.DefaultMaxToolCalls,
			Sources:     cli.EnvVars("SPOTTER_MAX_TOOL_CALLS"),
			Destination: &cfg.maxToolCalls,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for turn transcripts (disabled when empty)",
			Sources:     cli.EnvVars("SPOTTER_ARCHIVE_BUCKET"),
			Destination: &cfg.archiveBucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object key prefix for archived transcripts",
			Sources:     cli.EnvVars("SPOTTER_ARCHIVE_PREFIX"),
			Destination: &cfg.archivePrefix,
		},
	}
}

// proposalFlags returns flags selecting where pending proposals live
func proposalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "proposal-store",
			Usage:       "Pending proposal store (memory, firestore)",
			Value:       "memory",
			Sources:     cli.EnvVars("SPOTTER_PROPOSAL_STORE"),
			Destination: &cfg.proposalStore,
		},
		&cli.DurationFlag{
			Name:        "proposal-ttl",
			Usage:       "How long a proposal can be committed",
			Value:       plan.DefaultProposalTTL,
			Sources:     cli.EnvVars("SPOTTER_PROPOSAL_TTL"),
			Destination: &cfg.proposalTTL,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies that can deny plan changes",
			Sources:     cli.EnvVars("SPOTTER_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for the Firestore proposal store",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "credentials",
			Usage:       "Service account credentials file for Google Cloud clients",
			Sources:     cli.EnvVars("GOOGLE_APPLICATION_CREDENTIALS"),
			Destination: &cfg.credentialsFile,
		},
	}
}

// allFlags returns every flag group used by agent commands
func allFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, proposalFlags(cfg)...)
	return flags
}

// setupLogger attaches the configured logger to ctx
func (cfg *config) setupLogger(ctx context.Context) (context.Context, error) {
	logger, err := logging.NewWithFormat(cfg.logLevel, cfg.logFormat, nil)
	if err != nil {
		return ctx, err
	}
	logger = logger.With(slog.String("app", "spotter"))
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

func (cfg *config) clientOptions() []option.ClientOption {
	if cfg.credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.credentialsFile)}
}

// newRepository opens the SQLite store
func (cfg *config) newRepository(ctx context.Context) (*repository.SQLite, error) {
	if cfg.dbPath == "" {
		return nil, goerr.New("db path is required")
	}
	repo, err := repository.NewSQLite(ctx, cfg.dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newResolver creates the date resolver for the configured timezone
func (cfg *config) newResolver() (*calendar.Resolver, error) {
	loc, err := calendar.LoadLocation(cfg.timezone)
	if err != nil {
		return nil, err
	}
	return calendar.New(calendar.WithLocation(loc)), nil
}

// newProposalStore creates the pending proposal store. The returned closer
// is never nil.
func (cfg *config) newProposalStore(ctx context.Context) (interfaces.ProposalStore, func() error, error) {
	switch cfg.proposalStore {
	case "", "memory":
		return repository.NewProposalMemory(), func() error { return nil }, nil
	case "firestore":
		if cfg.firestoreProject == "" {
			return nil, nil, goerr.New("firestore-project is required for the firestore proposal store")
		}
		store, err := repository.NewProposalFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase, cfg.clientOptions()...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create firestore proposal store")
		}
		return store, store.Close, nil
	default:
		return nil, nil, goerr.New("unknown proposal store", goerr.V("proposal_store", cfg.proposalStore))
	}
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	opts := []adapter.GeminiOption{adapter.WithGenerativeModel(cfg.geminiModel)}
	switch {
	case cfg.geminiAPIKey != "":
		opts = append(opts, adapter.WithAPIKey(cfg.geminiAPIKey))
	case cfg.geminiProject != "":
		opts = append(opts, adapter.WithVertexAI(cfg.geminiProject, cfg.geminiLocation))
	default:
		return nil, goerr.New("gemini-api-key or gemini-project is required")
	}
	return adapter.NewGemini(ctx, opts...)
}

// newStorage creates the transcript archive, or nil when no bucket is set
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.archiveBucket == "" {
		return nil, nil
	}
	storage, err := adapter.NewStorage(ctx, cfg.archiveBucket, cfg.clientOptions(), cfg.storageOptions()...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

func (cfg *config) storageOptions() []adapter.StorageOption {
	if cfg.archivePrefix == "" {
		return nil
	}
	return []adapter.StorageOption{adapter.WithStoragePrefix(cfg.archivePrefix)}
}

// workspace bundles everything a command needs to reach the domain.
type workspace struct {
	repo     *repository.SQLite
	resolver *calendar.Resolver
	memory   *memory.Store
	client   *tool.Client
	registry *tool.Registry
	closers  []func() error
}

func (w *workspace) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		_ = w.closers[i]()
	}
}

// newWorkspace opens the store and wires the tool registry
func (cfg *config) newWorkspace(ctx context.Context) (*workspace, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	ws := &workspace{repo: repo, closers: []func() error{repo.Close}}

	resolver, err := cfg.newResolver()
	if err != nil {
		ws.Close()
		return nil, err
	}

	proposals, closeProposals, err := cfg.newProposalStore(ctx)
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.closers = append(ws.closers, closeProposals)

	ttl := cfg.proposalTTL
	if ttl <= 0 {
		ttl = plan.DefaultProposalTTL
	}

	plannerOpts := []plan.PlannerOption{plan.WithProposalTTL(ttl)}
	guard, err := policy.Load(ctx, cfg.policyDir)
	if err != nil {
		ws.Close()
		return nil, err
	}
	if guard != nil {
		plannerOpts = append(plannerOpts, plan.WithPolicy(guard))
	}

	ws.resolver = resolver
	ws.memory = memory.New(repo)
	ws.client = tool.NewClient(repo, proposals, resolver, ws.memory, plannerOpts...)
	ws.registry = workout.NewRegistry(ws.client)
	return ws, nil
}

// newAgent creates the planning loop on top of ws
func (cfg *config) newAgent(ctx context.Context, ws *workspace) (*chat.Agent, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	opts := []chat.Option{chat.WithMaxToolCalls(int(cfg.maxToolCalls))}
	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, err
	}
	if storage != nil {
		opts = append(opts, chat.WithStorage(storage))
	}

	return chat.New(gemini, ws.registry, ws.memory, ws.resolver, opts...), nil
}
