// Package contentcycle provides a top-level convenience entry point for
// running content iteration cycles with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/contentcycle"
//
//	svc, err := contentcycle.New(contentcycle.WithSQLite("cycle.db"))
//	svc, err := contentcycle.New(
//		contentcycle.WithOpenRouter(apiKey, "openrouter/sherlock-think-alpha"),
//		contentcycle.WithSQLite("cycle.db"),
//	)
//
// Without a provider option the service runs in mock mode: deterministic
// simulated evaluations, no upstream calls and no cost.
package contentcycle

import (
	"context"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/contentcycle/inference"
	"github.com/BaSui01/contentcycle/llm"
	"github.com/BaSui01/contentcycle/providers"
	"github.com/BaSui01/contentcycle/providers/openrouter"
	"github.com/BaSui01/contentcycle/service"
	"github.com/BaSui01/contentcycle/store"
)

// Option configures the service created by [New].
type Option func(*options)

type options struct {
	dsn         string
	apiKey      string
	model       string
	parallelism int
	logger      *zap.Logger
}

// WithSQLite sets the sqlite database path. ":memory:" works for throwaway runs.
func WithSQLite(path string) Option {
	return func(o *options) { o.dsn = path }
}

// WithOpenRouter enables live inference through OpenRouter with the given
// API key and model. Upstream failures degrade to simulated evaluations.
func WithOpenRouter(apiKey, model string) Option {
	return func(o *options) {
		o.apiKey = apiKey
		o.model = model
	}
}

// WithParallelism bounds concurrent persona evaluations.
func WithParallelism(n int) Option {
	return func(o *options) { o.parallelism = n }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a ready-to-use [service.Service] backed by sqlite, with the
// builtin reviewer personas seeded. At minimum an in-memory database is used
// when no [WithSQLite] option is given.
func New(opts ...Option) (*service.Service, error) {
	o := options{
		dsn:         ":memory:",
		parallelism: 5,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(sqlite.Open(o.dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	st := store.New(db, o.logger)
	if err := st.AutoMigrate(); err != nil {
		return nil, err
	}

	var client inference.Client = inference.NewMockClient()
	if o.apiKey != "" {
		provider := openrouter.New(providers.OpenRouterConfig{
			APIKey: o.apiKey,
			Model:  o.model,
		}, o.logger)
		live := inference.NewLiveClient(provider, o.model, o.model, llm.DefaultPriceTable(), o.logger)
		client = inference.NewFallbackClient(live, inference.NewMockClient(), o.logger)
	}

	svc := service.New(st, client, o.parallelism, o.logger)
	if _, err := svc.SeedPersonas(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}
