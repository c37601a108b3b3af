package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/andersCTO/monstrens-natt/internal/api"
	"github.com/andersCTO/monstrens-natt/internal/factory"
	"github.com/andersCTO/monstrens-natt/internal/model"
	"github.com/andersCTO/monstrens-natt/internal/services/session"
	redisstorage "github.com/andersCTO/monstrens-natt/internal/storage/redis"
)

const releaseVersion = "1.0.0"

type config struct {
	bind           string
	port           int
	storageType    string
	redisURL       string
	minPlayers     int
	mingelDuration time.Duration
	joinCutoff     string
	hostFailover   bool
	resultsTTL     time.Duration
	logLevel       string
	logFormat      string
}

func (c *config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.storageType != factory.StorageTypeMemory && c.storageType != factory.StorageTypeRedis {
		return fmt.Errorf("invalid storage type: %s", c.storageType)
	}
	if c.storageType == factory.StorageTypeRedis && c.redisURL == "" {
		return errors.New("--redis-url is required when --storage-type is redis")
	}
	if c.minPlayers < 1 {
		return fmt.Errorf("invalid minimum player count: %d", c.minPlayers)
	}
	cutoff := model.Phase(c.joinCutoff)
	if !cutoff.Valid() || cutoff == model.PhaseResults {
		return fmt.Errorf("invalid join cutoff phase: %s", c.joinCutoff)
	}
	return nil
}

func (c *config) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level: %s", c.logLevel)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch c.logFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", c.logFormat)
	}
}

func newCmd(cfg *config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MONSTRENS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "monstrens-natt",
		Short:   "Real-time party game server for Monstrens Natt.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MONSTRENS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: MONSTRENS_PORT)")
	fs.StringVar(&cfg.storageType, "storage-type", factory.StorageTypeMemory, "storage backend, memory or redis (env: MONSTRENS_STORAGE_TYPE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection url (env: MONSTRENS_REDIS_URL)")
	fs.IntVar(&cfg.minPlayers, "min-players", session.DefaultMinPlayersToStart, "minimum players before a game can start (env: MONSTRENS_MIN_PLAYERS)")
	fs.DurationVar(&cfg.mingelDuration, "mingel-duration", session.DefaultMingelDuration, "length of the mingle phase (env: MONSTRENS_MINGEL_DURATION)")
	fs.StringVar(&cfg.joinCutoff, "join-cutoff", string(model.PhaseMingel), "last phase that accepts new players (env: MONSTRENS_JOIN_CUTOFF)")
	fs.BoolVar(&cfg.hostFailover, "host-failover", false, "promote a new host when the host disconnects (env: MONSTRENS_HOST_FAILOVER)")
	fs.DurationVar(&cfg.resultsTTL, "results-ttl", session.DefaultResultsTTL, "how long finished games linger before deletion (env: MONSTRENS_RESULTS_TTL)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error (env: MONSTRENS_LOG_LEVEL)")
	fs.StringVar(&cfg.logFormat, "log-format", "json", "log format: json or text (env: MONSTRENS_LOG_FORMAT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("monstrens-natt v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func run(ctx context.Context, cfg *config) error {
	logger, err := cfg.logger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	sessionCfg := session.Config{
		MinPlayersToStart: cfg.minPlayers,
		MingelDuration:    cfg.mingelDuration,
		JoinCutoff:        model.Phase(cfg.joinCutoff),
		HostFailover:      cfg.hostFailover,
		ResultsTTL:        cfg.resultsTTL,
	}

	factoryCfg := factory.Config{
		SessionConfig: sessionCfg,
		Logger:        logger,
		StorageType:   cfg.storageType,
	}
	if cfg.storageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.redisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		SessionController: app.SessionController,
		WebsocketHandler:  app.WebsocketHandler,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = cfg.bind
	serverCfg.Port = cfg.port
	server := api.NewServer(router, serverCfg, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

func main() {
	cfg := &config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
