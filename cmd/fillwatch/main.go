// Command fillwatch serves fill-weight control charts and evaluates the
// Nelson rules over them.
package main

//	@title			FillWatch API
//	@version		0.1.0
//	@description	Statistical process control for fill-weight measurements.
//	@BasePath		/api/v1

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HerbHall/fillwatch/internal/config"
	"github.com/HerbHall/fillwatch/internal/registry"
	"github.com/HerbHall/fillwatch/internal/server"
	"github.com/HerbHall/fillwatch/internal/spc"
	"github.com/HerbHall/fillwatch/internal/store"
	"github.com/HerbHall/fillwatch/internal/version"
	"github.com/HerbHall/fillwatch/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		case "import":
			os.Exit(runImport(os.Args[2:]))
		case "evaluate":
			os.Exit(runEvaluate(os.Args[2:]))
		case "version":
			fmt.Println(version.Info())
			return
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}
	if err := serve(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fillwatch: %v\n", err)
		os.Exit(1)
	}
}

// runtimeEnv is the configuration, logger, and local database shared by
// every subcommand.
type runtimeEnv struct {
	viper  *viper.Viper
	cfg    *config.ViperConfig
	logger *zap.Logger
	db     *store.SQLiteStore
}

func bootstrap(ctx context.Context, configPath string) (*runtimeEnv, error) {
	v, err := server.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	dbPath := v.GetString("database.path")
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", dbPath))

	return &runtimeEnv{viper: v, cfg: config.New(v), logger: logger, db: db}, nil
}

func (e *runtimeEnv) close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}

func (e *runtimeEnv) deps(name string) plugin.Dependencies {
	return plugin.Dependencies{
		Config: e.cfg.Sub("plugins." + name),
		Logger: e.logger.Named(name),
		Store:  e.db,
	}
}

func serve(configPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer env.close()
	logger := env.logger

	logger.Info("FillWatch server starting", zap.String("version", version.Short()))

	spcMod := spc.New()
	reg := registry.New(logger.Named("registry"))
	for _, m := range []plugin.Plugin{spcMod} {
		if err := reg.Register(m); err != nil {
			return fmt.Errorf("register plugin: %w", err)
		}
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("validate plugins: %w", err)
	}
	if err := reg.InitAll(ctx, env.deps); err != nil {
		return fmt.Errorf("initialize plugins: %w", err)
	}
	if err := reg.StartAll(ctx); err != nil {
		return fmt.Errorf("start plugins: %w", err)
	}

	var srvCfg server.Config
	if err := env.viper.UnmarshalKey("server", &srvCfg); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	ready := server.ReadinessChecker(func(ctx context.Context) error {
		if err := env.db.DB().PingContext(ctx); err != nil {
			return err
		}
		return pluginsReady(ctx, reg, spcMod.Info().Name)
	})
	srv := server.New(srvCfg.Addr(), reg, logger, ready)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("FillWatch server ready", zap.String("addr", srvCfg.Addr()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	reg.StopAll(shutdownCtx)
	logger.Info("FillWatch server stopped")
	return nil
}

// readyChecker is implemented by plugins that gate server readiness.
type readyChecker interface {
	Ready(ctx context.Context) error
}

// pluginsReady fails for the first named plugin that is disabled or not
// yet ready.
func pluginsReady(ctx context.Context, reg *registry.Registry, names ...string) error {
	for _, name := range names {
		p, ok := reg.Get(name)
		if !ok {
			return fmt.Errorf("plugin %q is not active", name)
		}
		if rc, ok := p.(readyChecker); ok {
			if err := rc.Ready(ctx); err != nil {
				return fmt.Errorf("plugin %q: %w", name, err)
			}
		}
	}
	return nil
}
