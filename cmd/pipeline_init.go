package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-migrate/internal/config"
	"github.com/sells-group/catalog-migrate/internal/fetcher"
	"github.com/sells-group/catalog-migrate/internal/migrate"
	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/pipeline"
	"github.com/sells-group/catalog-migrate/internal/refsource"
	"github.com/sells-group/catalog-migrate/internal/resilience"
	"github.com/sells-group/catalog-migrate/internal/snapshot"
	"github.com/sells-group/catalog-migrate/internal/target"
	"github.com/sells-group/catalog-migrate/internal/transform"
	"github.com/sells-group/catalog-migrate/pkg/notion"
	sfpkg "github.com/sells-group/catalog-migrate/pkg/salesforce"
	"github.com/sells-group/catalog-migrate/pkg/segwik"
	"github.com/sells-group/catalog-migrate/pkg/woocommerce"
)

// pipelineEnv holds the pipeline and the resources it keeps open.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Cache    *snapshot.Cache
	closers  []func() error
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	for _, c := range pe.closers {
		if err := c(); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// envOptions says which parts of the environment a command needs.
type envOptions struct {
	// Store builds the WooCommerce client.
	Store bool
	// Target builds the upsert target. Dry runs leave it unset.
	Target bool
	// Sources are the reference origins the command resolves against.
	Sources []model.Origin
}

// initPipeline validates the config for opts and builds the Pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, opts envOptions) (*pipelineEnv, error) {
	if opts.Store {
		if err := cfg.Validate(config.ModeStore); err != nil {
			return nil, err
		}
	}
	if opts.Target {
		if err := cfg.Validate(config.ModeTarget); err != nil {
			return nil, err
		}
	}

	env := &pipelineEnv{}
	cache, closeCache, err := initCache(ctx)
	if err != nil {
		return nil, err
	}
	env.Cache = cache
	if closeCache != nil {
		env.closers = append(env.closers, closeCache)
	}

	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)

	var store woocommerce.Client
	if opts.Store {
		store = woocommerce.NewClient(cfg.WooCommerce.URL, woocommerce.Credentials{
			ConsumerKey:    cfg.WooCommerce.ConsumerKey,
			ConsumerSecret: cfg.WooCommerce.ConsumerSecret,
			WPUsername:     cfg.WooCommerce.WPUsername,
			WPPassword:     cfg.WooCommerce.WPPassword,
		},
			woocommerce.WithRateLimit(cfg.WooCommerce.RateLimit),
			woocommerce.WithPerPage(cfg.WooCommerce.PerPage),
			woocommerce.WithRetry(retry),
		)
	}

	var up migrate.Upserter
	if opts.Target {
		up, err = initTarget(retry)
		if err != nil {
			env.Close()
			return nil, err
		}
	}

	personas := transform.DefaultPersonaTable()
	if cfg.Persona.TablePath != "" {
		personas, err = transform.LoadPersonaTable(cfg.Persona.TablePath)
		if err != nil {
			env.Close()
			return nil, err
		}
	}

	sourceOpts, err := initSources(opts.Sources, retry)
	if err != nil {
		env.Close()
		return nil, err
	}

	engine := migrate.NewEngine(up, migrate.WithCircuitBreaker(resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold)))
	tr := transform.New(transform.Options{Personas: personas, Source: "wordpress"})

	pipeOpts := append([]pipeline.Option{
		pipeline.WithLedgerDir(cfg.Ledger.Dir),
		pipeline.WithReportDir(cfg.Report.Dir),
		pipeline.WithTTL(cfg.Cache.TTL()),
	}, sourceOpts...)
	env.Pipeline = pipeline.New(store, cache, tr, engine, pipeOpts...)

	return env, nil
}

// initCache opens the snapshot store configured by cache.backend. The
// returned close func is nil for stores that hold nothing open.
func initCache(ctx context.Context) (*snapshot.Cache, func() error, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile, "":
		fs, err := snapshot.NewFileStore(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		return snapshot.NewCache(fs), nil, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
			return nil, nil, eris.Wrap(err, "create cache dir")
		}
		st, err := snapshot.NewSQLiteStore(ctx, filepath.Join(cfg.Cache.Dir, "snapshots.db"))
		if err != nil {
			return nil, nil, err
		}
		return snapshot.NewCache(st), st.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

// initTarget builds the Upserter named by migrate.target.
func initTarget(retry resilience.RetryConfig) (migrate.Upserter, error) {
	switch cfg.Migrate.Target {
	case config.TargetSegwik:
		client := segwik.NewClient(cfg.Segwik.Token,
			segwik.WithBaseURL(cfg.Segwik.BaseURL),
			segwik.WithRateLimit(cfg.Segwik.RateLimit),
			segwik.WithRetry(retry),
		)
		return target.NewSegwik(client), nil
	case config.TargetSalesforce:
		pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
		if err != nil {
			return nil, eris.Wrap(err, "read salesforce JWT private key")
		}
		client, err := sfpkg.Connect(sfpkg.Credentials{
			LoginURL:      cfg.Salesforce.LoginURL,
			Username:      cfg.Salesforce.Username,
			ClientID:      cfg.Salesforce.ClientID,
			PrivateKeyPEM: string(pemData),
		}, sfpkg.WithRateLimit(cfg.Salesforce.RateLimit))
		if err != nil {
			return nil, err
		}
		return target.NewSalesforce(client), nil
	default:
		return nil, eris.Errorf("unsupported migrate target: %s", cfg.Migrate.Target)
	}
}

// initSources registers fetchers for the optional reference origins.
// wp_users and wc_products come from the store client.
func initSources(origins []model.Origin, retry resilience.RetryConfig) ([]pipeline.Option, error) {
	var opts []pipeline.Option
	for _, origin := range origins {
		switch origin {
		case model.OriginWPUsers:
			if err := cfg.Validate(config.ModeWordPress); err != nil {
				return nil, err
			}
		case model.OriginClientList:
			dl := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				Timeout: time.Duration(cfg.ClientList.TimeoutSecs) * time.Second,
				Retry:   retry,
			})
			fetch := refsource.ClientList(dl, refsource.ClientListOptions{
				Source:    cfg.ClientList.Source,
				SheetName: cfg.ClientList.Sheet,
			})
			if strings.TrimSpace(cfg.ClientList.Source) == "" {
				opts = append(opts, pipeline.WithUncachedSource(origin, fetch))
				continue
			}
			opts = append(opts, pipeline.WithSource(origin, fetch))
		case model.OriginNotionClients:
			if err := cfg.Validate(config.ModeNotion); err != nil {
				return nil, err
			}
			nc := notion.NewClient(cfg.Notion.Token, notion.WithRetry(retry))
			opts = append(opts, pipeline.WithSource(origin, refsource.NotionClients(nc, refsource.NotionOptions{
				DatabaseID:    cfg.Notion.ClientDB,
				NameProperty:  cfg.Notion.NameProperty,
				EmailProperty: cfg.Notion.EmailProperty,
				AliasProperty: cfg.Notion.AliasProperty,
			})))
		default:
			return nil, eris.Errorf("unknown reference source %q", origin)
		}
	}
	return opts, nil
}
