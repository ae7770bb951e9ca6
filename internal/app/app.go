// Package app wires the daemon together: config, logging, storage, the link
// controller, the manual timer, the conflict resolver, the schedule store and
// the job runner. It exposes the operation facade the transports call.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"iptvctl/internal/config"
	"iptvctl/internal/conflict"
	"iptvctl/internal/eventbus"
	"iptvctl/internal/history"
	"iptvctl/internal/link"
	"iptvctl/internal/schedule"
	"iptvctl/internal/scheduler"
	"iptvctl/internal/storage"
	"iptvctl/internal/timer"
	logx "iptvctl/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store storage.Store

	link      *link.Controller
	timer     *timer.Service
	resolver  *conflict.Resolver
	sched     *scheduler.Service
	schedules *schedule.Store
	hist      *history.Log

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		// No config file is fine for a first run; the defaults describe a
		// standard single-interface host.
		cfg = config.Default()
		cfgm.Commit(cfg)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.SQLiteBusyTimeout(),
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	linkCtl := link.NewController(link.Config{
		Interface: cfg.Link.Interface,
		UseSudo:   cfg.Link.UseSudo,
	}, link.NewExecRunner(cfg.Link.Timeout()), bus, log.With(logx.String("comp", "link")))

	markerPath := cfg.Timer.MarkerPath
	if markerPath == "" {
		markerPath = "/tmp/iptv_manual_timer"
	}
	marker := timer.NewFileMarker(markerPath)
	hist := history.NewLog(store, log.With(logx.String("comp", "history")))

	timerSvc := timer.New(timer.Config{
		Presets: cfg.Timer.Presets,
	}, linkCtl, marker, hist, bus, log.With(logx.String("comp", "timer")))

	resolver := conflict.NewResolver(marker, cfg.Timer.Ceiling(), bus, log.With(logx.String("comp", "conflict")))

	schedSvc := scheduler.New(scheduler.Config{
		Enabled:        cfg.Scheduler.IsEnabled(),
		Workers:        cfg.Scheduler.Workers,
		DefaultTimeout: cfg.Scheduler.JobTimeout(),
		Timezone:       cfg.Scheduler.Timezone,
	}, log.With(logx.String("comp", "scheduler")))

	a := &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		link:     linkCtl,
		timer:    timerSvc,
		resolver: resolver,
		sched:    schedSvc,
		hist:     hist,
	}

	a.schedules = schedule.NewStore(store, schedSvc, a.scheduledOn, a.scheduledOff,
		log.With(logx.String("comp", "schedule")))
	return a, nil
}

// Config returns the last committed configuration.
func (a *App) Config() *config.Config { return a.cfgm.Get() }

// Logger returns the app's root logger for transports to derive from.
func (a *App) Logger() logx.Logger { return a.log }

// scheduledOn is the job body of every ON schedule.
func (a *App) scheduledOn(ctx context.Context) error {
	return a.link.Up(ctx, "schedule")
}

// scheduledOff is the job body of every OFF schedule. Unlike manual clicks
// and the timer's own expiry, it consults the conflict resolver first.
func (a *App) scheduledOff(ctx context.Context) error {
	if !a.resolver.ShouldProceed() {
		return nil
	}
	return a.link.Down(ctx, "schedule")
}

func (a *App) Start(ctx context.Context) error {
	a.runCtx, a.runCancel = context.WithCancel(ctx)

	a.sched.Start(a.runCtx)

	if err := a.schedules.Load(a.runCtx); err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	a.startAuditTrail()
	a.startConfigReload()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(a.runCtx); err != nil {
			a.log.Warn("config watch exited", logx.Err(err))
		}
	}()

	a.log.Info("app started",
		logx.String("iface", a.link.Interface()),
		logx.String("config", a.cfgPath))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.runCancel != nil {
		a.runCancel()
	}

	a.sched.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("stop timed out waiting for background loops")
	}

	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}

// startAuditTrail persists link outcomes and suppressed shutdowns.
func (a *App) startAuditTrail() {
	events, unsub := a.bus.Subscribe(128)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer unsub()
		for {
			select {
			case <-a.runCtx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				entry, ok := auditEntry(e)
				if !ok {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := a.store.AppendAudit(ctx, entry); err != nil {
					a.log.Warn("audit append failed", logx.Err(err))
				}
				cancel()
			}
		}
	}()
}

func auditEntry(e eventbus.Event) (storage.AuditEntry, bool) {
	switch e.Type {
	case eventbus.TypeLinkChanged, eventbus.TypeLinkSkipped:
		ce, ok := e.Data.(link.ChangeEvent)
		if !ok {
			return storage.AuditEntry{}, false
		}
		return storage.AuditEntry{
			At:      e.Time,
			Source:  ce.Source,
			Action:  ce.Action,
			Outcome: ce.Outcome,
			Error:   ce.Err,
		}, true
	case eventbus.TypeOffSuppressed:
		return storage.AuditEntry{
			At:      e.Time,
			Source:  "schedule",
			Action:  "down",
			Outcome: "suppressed",
		}, true
	}
	return storage.AuditEntry{}, false
}

// startConfigReload applies hot-reloadable sections of a committed config.
// Storage and link interface changes need a restart and only log a warning.
func (a *App) startConfigReload() {
	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-a.runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: apply only the latest.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							cfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(cfg)
			}
		}
	}()
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a.resolver.SetCeiling(cfg.Timer.Ceiling())

	a.sched.Apply(scheduler.Config{
		Enabled:        cfg.Scheduler.IsEnabled(),
		Workers:        cfg.Scheduler.Workers,
		DefaultTimeout: cfg.Scheduler.JobTimeout(),
		Timezone:       cfg.Scheduler.Timezone,
	})
	// Start/Stop are idempotent, so flipping the enable flag is safe here.
	if cfg.Scheduler.IsEnabled() {
		a.sched.Start(a.runCtx)
	} else {
		stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	}

	if cfg.Link.Interface != a.link.Interface() {
		a.log.Warn("link.interface changed; restart required to take effect")
	}

	a.log.Info("config reloaded")
}
