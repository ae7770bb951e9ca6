package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"iptvctl/internal/app"
	"iptvctl/internal/transport/httpapi"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json/yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	var api *httpapi.Server
	if cfg := a.Config(); cfg.HTTP.Enabled {
		readTO, writeTO, idleTO := cfg.HTTP.Timeouts()
		api = httpapi.NewServer(httpapi.Config{
			Addr:         cfg.HTTP.Addr,
			RatePerSec:   cfg.HTTP.RatePerSec,
			ReadTimeout:  readTO,
			WriteTimeout: writeTO,
			IdleTimeout:  idleTO,
		}, a, a.Logger())
		api.Start(ctx)
	}

	// Under systemd Type=notify; both calls are no-ops elsewhere.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdog(ctx)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if api != nil {
		_ = api.Stop(stopCtx)
	}
	_ = a.Stop(stopCtx)
}

// watchdog pets the systemd watchdog at half its interval when one is set.
func watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
