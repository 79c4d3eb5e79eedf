package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"signal-engine/api"
	"signal-engine/internal/config"
	"signal-engine/internal/engine"
	"signal-engine/internal/infrastructure"
	"signal-engine/internal/model"
	"signal-engine/internal/processor"
	"signal-engine/internal/push"
	"signal-engine/internal/report"
	"signal-engine/internal/strategy"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App defines the application structure and its dependencies
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *pgxpool.Pool
	NC         *nats.Conn
	JS         nats.JetStreamContext
	Processor  *processor.SignalProcessor
	Gateway    *push.SignalGateway
	HTTPServer *http.Server

	classifier strategy.Classifier
}

// NewApp loads configuration from configDir and the environment.
func NewApp(configDir string) (*App, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := infrastructure.Init(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	a := &App{
		Config: &cfg,
		Logger: infrastructure.Logger,
	}
	if cfg.CacheSize > 0 {
		cached, err := strategy.NewCachedClassifier(nil, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		a.classifier = cached
	}
	if _, err := a.newStrategy(); err != nil {
		return nil, fmt.Errorf("invalid strategy config: %w", err)
	}
	return a, nil
}

// newStrategy builds one instance of the configured strategy.
func (a *App) newStrategy() (strategy.Strategy, error) {
	var opts []strategy.Option
	if a.classifier != nil {
		opts = append(opts, strategy.WithClassifier(a.classifier))
	}
	return strategy.NewStrategy(a.Config.Strategy, a.Config.WindowSize, opts...)
}

// Init connects the live-service dependencies. It is a no-op unless SERVE is set.
func (a *App) Init(ctx context.Context) error {
	if !a.Config.Serve {
		return nil
	}

	// 1. Database (optional)
	if a.Config.DB_DSN != "" {
		dbPool, err := pgxpool.Connect(ctx, a.Config.DB_DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = dbPool
	}

	// 2. NATS
	nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.NC = nc
	a.JS = js

	// 3. Services
	a.Processor = processor.NewSignalProcessor(js, a.newStrategy, a.Logger)
	a.Gateway = push.NewSignalGateway(js, a.Logger)
	return nil
}

// Run replays the CSV history, profiles both strategies and writes the
// report. With SERVE set it then runs the live service until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.replayHistory(ctx); err != nil {
		return err
	}

	if _, err := a.profile(ctx); err != nil {
		return err
	}

	if !a.Config.Serve {
		return nil
	}
	return a.serve(ctx)
}

// replayHistory feeds the configured CSV file through the strategy. A missing
// file is logged and skipped.
func (a *App) replayHistory(ctx context.Context) error {
	src, err := engine.OpenCSV(a.Config.DataPath)
	if errors.Is(err, engine.ErrSourceNotFound) {
		a.Logger.Warn("market data not found, skipping CSV replay", zap.String("path", a.Config.DataPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open market data: %w", err)
	}
	defer src.Close()

	strat, err := a.newStrategy()
	if err != nil {
		return err
	}
	summary, err := engine.Run(ctx, strat, src, engine.SinkFunc(func(tk model.Tick, signals []strategy.Signal) error {
		for _, sig := range signals {
			a.Logger.Debug("signal",
				zap.String("symbol", tk.Symbol),
				zap.Time("ts", tk.Timestamp),
				zap.Float64("price", tk.Price),
				zap.String("signal", string(sig)),
			)
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to replay market data: %w", err)
	}

	a.Logger.Info("successfully loaded market data",
		zap.String("path", a.Config.DataPath),
		zap.Int("rows", summary.Ticks),
		zap.Int("buys", summary.Buys),
		zap.Int("sells", summary.Sells),
	)
	return nil
}

func (a *App) profile(ctx context.Context) (*model.ProfileReport, error) {
	counts, err := a.Config.TickCountList()
	if err != nil {
		return nil, err
	}
	profiler, err := engine.NewProfiler(engine.ProfileConfig{
		WindowSize: a.Config.WindowSize,
		TickCounts: counts,
		Repeats:    a.Config.Repeats,
	}, a.Logger)
	if err != nil {
		return nil, err
	}

	rep, err := profiler.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("profiling failed: %w", err)
	}

	if err := os.MkdirAll(a.Config.ReportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := report.WritePlots(rep, a.Config.ReportDir); err != nil {
		return nil, err
	}
	path := filepath.Join(a.Config.ReportDir, report.MarkdownFile)
	if err := report.WriteMarkdownFile(path, rep); err != nil {
		return nil, err
	}
	a.Logger.Info("report generated", zap.String("path", path))
	return rep, nil
}

func (a *App) serve(ctx context.Context) error {
	if a.JS == nil {
		return errors.New("serve requested but Init was not called")
	}

	if err := a.Processor.Run(ctx); err != nil {
		return fmt.Errorf("failed to start signal processor: %w", err)
	}

	a.startIngestionWorker(ctx)

	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return a.waitForShutdown(ctx, errCh)
}

// waitForShutdown blocks until ctx is cancelled or the HTTP server fails.
func (a *App) waitForShutdown(ctx context.Context, errCh <-chan error) error {
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.Logger.Error("http server failed", zap.Error(runErr))
	}

	a.Logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.NC != nil {
		a.NC.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	a.Logger.Sync()
	return runErr
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	var loader *engine.DataLoader
	if a.DB != nil {
		loader = engine.NewDataLoader(a.DB)
	}
	api.NewHandler(loader, a.Logger).Register(r.Group("/api/v1"))

	if a.Gateway != nil {
		r.GET("/ws", func(c *gin.Context) {
			a.Gateway.ServeHTTP(c.Writer, c.Request)
		})
	}

	return r
}
