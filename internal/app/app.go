package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/api"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/config"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/ledger"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/notify"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/push"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/scheduler"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/store"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/telegram"
)

// App wires the tracker together and runs it until shutdown.
type App struct {
	cfg  config.Config
	log  *zap.Logger
	repo store.Repo
}

// New creates the App.
func New(cfg config.Config, log *zap.Logger) *App {
	return &App{cfg: cfg, log: log}
}

// Run starts the HTTP API and the check scheduler and blocks until a
// shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting plant tracker",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Bool("push", a.cfg.PushEnabled),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	defer func() { _ = a.repo.Close() }()
	a.log.Info("sqlite ready")

	blob, err := ledger.NewFileBlob(filepath.Dir(a.cfg.HistoryPath))
	if err != nil {
		return err
	}
	led := ledger.New(blob, a.log, ledger.WithKey(historyKey(a.cfg.HistoryPath)))

	surface := a.buildSurface()

	relay := push.New(repo, a.log, a.cfg.VAPIDPublic, a.cfg.VAPIDPrivate, a.cfg.VAPIDSubject)
	pushAvailable := a.cfg.PushEnabled && relay.Configured()

	var registrar notify.Registrar
	var dispatchRelay notify.PushRelay
	if pushAvailable {
		registrar = relay
		dispatchRelay = relay
	}
	prefs := notify.NewPreferences(repo, registrar, a.log)
	disp := notify.NewDispatcher(prefs, led, surface, dispatchRelay, pushAvailable, a.log)

	srv := &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      api.New(repo, disp, prefs, surface, a.cfg.DefaultUserID, a.log).Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(a.cfg.CheckIntervalSec) * time.Second
	sched := scheduler.New(repo, disp, a.cfg.DefaultUserID, interval, a.log)
	go sched.Run(ctx)

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	return nil
}

// buildSurface picks the notification surface for this environment.
// Without a bot token the tracker still serves the API; checks simply
// terminate at the support step.
func (a *App) buildSurface() notify.Surface {
	if a.cfg.BotToken == "" || a.cfg.OwnerChat == 0 {
		a.log.Info("no notification surface configured")
		return notify.NopSurface{}
	}
	surface, err := telegram.NewSurface(a.cfg.BotToken, a.cfg.OwnerChat, a.log)
	if err != nil {
		a.log.Error("telegram surface unavailable", zap.Error(err))
		return notify.NopSurface{}
	}
	return surface
}

// historyKey derives the ledger blob key from the configured path, so
// HISTORY_PATH=./data/notification-history.json keeps its filename.
func historyKey(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}
