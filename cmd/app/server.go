package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	rediscache "github.com/atvirokodosprendimai/carcrm/internal/adapters/cache/redis"
	"github.com/atvirokodosprendimai/carcrm/internal/adapters/db/sqlstore"
	httpadapter "github.com/atvirokodosprendimai/carcrm/internal/adapters/http"
	rpcadapter "github.com/atvirokodosprendimai/carcrm/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/carcrm/internal/application"
	"github.com/atvirokodosprendimai/carcrm/internal/config"
	"github.com/atvirokodosprendimai/carcrm/internal/logging"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Sources: cli.EnvVars("CARCRM_CONFIG"), Usage: "TOML configuration file"},
		&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
		&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path"},
		&cli.StringFlag{Name: "db-driver", Usage: "sqlite or mysql"},
		&cli.StringFlag{Name: "db-path", Usage: "SQLite database path"},
		&cli.StringFlag{Name: "db-dsn", Usage: "MySQL DSN"},
		&cli.StringFlag{Name: "redis-url", Usage: "catalog cache, e.g. redis://localhost:6379/0"},
		&cli.StringFlag{Name: "log-level"},
		&cli.StringFlag{Name: "log-format", Usage: "json or console"},
		&cli.StringFlag{Name: "timezone", Usage: "timezone note statistics count days in"},
	}
}

// loadServerConfig reads --config and applies any flags given explicitly.
func loadServerConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		flag   string
		target *string
	}{
		{"addr", &cfg.HTTP.Addr},
		{"rpc-socket", &cfg.RPC.Socket},
		{"db-driver", &cfg.Database.Driver},
		{"db-path", &cfg.Database.Path},
		{"db-dsn", &cfg.Database.DSN},
		{"redis-url", &cfg.Cache.RedisURL},
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
		{"timezone", &cfg.Stats.Timezone},
	}
	for _, o := range overrides {
		if c.IsSet(o.flag) {
			*o.target = c.String(o.flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore connects to the configured database and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := sqlstore.Open(cfg.Database.Driver, cfg.DSN(), log)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.RunMigrations(ctx, db, log); err != nil {
		closeStore(db)
		return nil, err
	}
	return db, nil
}

func closeStore(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// setup loads configuration, builds the logger and opens the store.
func setup(ctx context.Context, c *cli.Command) (*config.Config, zerolog.Logger, *gorm.DB, error) {
	cfg, err := loadServerConfig(c)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	return cfg, logger, db, nil
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the HTTP API and the JSON-RPC socket",
		Flags: serverFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, logger, db, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer closeStore(db)
			return runServer(ctx, cfg, logger, db)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, db *gorm.DB) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	opts := []application.Option{application.WithLogger(logger), application.WithLocation(loc)}
	if cfg.Cache.RedisURL != "" {
		cache, err := rediscache.New(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		defer func() { _ = cache.Close() }()
		opts = append(opts, application.WithCache(cache))
		logger.Info().Dur("ttl", cfg.Cache.TTL).Msg("catalog cache enabled")
	}

	service := application.NewPipelineService(sqlstore.NewPipelineRepository(db), opts...)

	router := httpadapter.NewRouter(service, logger)
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPC.Socket, service, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()
	logger.Info().Str("socket", cfg.RPC.Socket).Msg("json-rpc listening")

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("driver", cfg.Database.Driver).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Flags: serverFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, _, db, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer closeStore(db)
			fmt.Printf("%s schema is up to date\n", cfg.Database.Driver)
			return nil
		},
	}
}

// principalsCommand works on the database directly. It is how an operator
// registers principals and hands out their first tokens.
func principalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "principals",
		Usage: "Manage principals (operator, direct database access)",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Register a principal",
				Flags: append(serverFlags(),
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "name"},
					jsonFlag(),
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					_, logger, db, err := setup(ctx, c)
					if err != nil {
						return err
					}
					defer closeStore(db)
					service := application.NewPipelineService(sqlstore.NewPipelineRepository(db), application.WithLogger(logger))
					p, err := service.CreatePrincipal(ctx, c.String("email"), c.String("name"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(p)
					}
					printKV([][2]string{{"id", formatID(int64(p.ID))}, {"email", p.Email}, {"name", p.Name}})
					return nil
				},
			},
			{
				Name:  "token",
				Usage: "Issue an API token; it is printed once",
				Flags: append(serverFlags(),
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime; never expires when unset"},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					_, logger, db, err := setup(ctx, c)
					if err != nil {
						return err
					}
					defer closeStore(db)
					service := application.NewPipelineService(sqlstore.NewPipelineRepository(db), application.WithLogger(logger))
					var ttl *time.Duration
					if c.IsSet("ttl") {
						d := c.Duration("ttl")
						ttl = &d
					}
					p, token, err := service.IssueAPIToken(ctx, c.String("email"), c.String("token-name"), ttl)
					if err != nil {
						return err
					}
					printKV([][2]string{{"principal", p.Email}, {"token", token}})
					return nil
				},
			},
		},
	}
}
