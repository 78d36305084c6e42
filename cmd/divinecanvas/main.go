package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/divinecanvas/internal/profile"
	"github.com/hrygo/divinecanvas/plugin/ai"
	v1 "github.com/hrygo/divinecanvas/server/router/api/v1"
	"github.com/hrygo/divinecanvas/store"
	"github.com/hrygo/divinecanvas/store/cache"
	"github.com/hrygo/divinecanvas/store/db"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "divinecanvas",
	Short: "Chat-driven canvas: turns conversations into diagrams, charts and infographics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version,
		}
		p.FromEnv()
		if err := p.Validate(); err != nil {
			return errors.Wrap(err, "invalid profile")
		}
		setupLogger(p)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, p)
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("divinecanvas")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func run(ctx context.Context, p *profile.Profile) error {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return errors.Wrap(err, "failed to create db driver")
	}

	messageCache, err := newMessageCache(ctx, p)
	if err != nil {
		return err
	}
	storeInstance := store.New(dbDriver, p, messageCache)
	defer storeInstance.Close()
	if err := storeInstance.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}

	var llm ai.LLMService
	if p.IsAIEnabled() {
		aiConfig := ai.NewConfigFromProfile(p)
		if err := aiConfig.Validate(); err != nil {
			return errors.Wrap(err, "invalid AI configuration")
		}
		if llm, err = ai.NewLLMService(&aiConfig.LLM); err != nil {
			return errors.Wrap(err, "failed to create LLM service")
		}
	}

	apiService, err := v1.NewAPIV1Service(p, storeInstance, llm)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	if err := apiService.RegisterRoutes(ctx, e); err != nil {
		return errors.Wrap(err, "failed to register routes")
	}

	address := fmt.Sprintf("%s:%d", p.Addr, p.Port)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("start HTTP server",
			slog.String("address", address),
			slog.String("mode", p.Mode),
			slog.String("driver", p.Driver),
			slog.String("version", p.Version),
		)
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newMessageCache builds the tiered message log cache, with Redis as L2 when
// an address is configured.
func newMessageCache(ctx context.Context, p *profile.Profile) (*cache.TieredCache, error) {
	cfg := cache.DefaultTieredConfig()
	if p.CacheRedisAddr != "" {
		redisCfg := cache.DefaultRedisConfig()
		redisCfg.Addr = p.CacheRedisAddr
		redisCfg.Password = p.CacheRedisPassword
		redisCfg.DB = p.CacheRedisDB
		redisCfg.KeyPrefix = p.CacheRedisPrefix
		l2, err := cache.NewRedisCache(ctx, redisCfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to redis")
		}
		cfg.L2 = l2
	}
	return cache.NewTieredCache(cfg), nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}
	if err := rootCmd.Execute(); err != nil {
		slog.Error("divinecanvas exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
