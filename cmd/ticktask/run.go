package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vnykmshr/ticktask/internal/config"
	"github.com/vnykmshr/ticktask/internal/runner"
	"github.com/vnykmshr/ticktask/pkg/journal"
	"github.com/vnykmshr/ticktask/pkg/logx"
	"github.com/vnykmshr/ticktask/pkg/metrics"
	"github.com/vnykmshr/ticktask/pkg/scheduling/task"
)

func run(rf runFlags) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logx.NewConsole(rf.logLevel)
	return serve(ctx, rf, afero.NewOsFs(), log)
}

// serve runs until ctx is done.
func serve(ctx context.Context, rf runFlags, fs afero.Fs, log logx.Logger) error {
	initial, err := afero.ReadFile(fs, rf.configPath)
	if err != nil {
		return err
	}
	f, err := config.Load(fs, rf.configPath)
	if err != nil {
		return err
	}

	var observers []task.Observer

	var srv *http.Server
	if rf.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, task.NewMetricsObserver(metrics.NewRegistry(reg)))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Addr: rf.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", logx.String("addr", rf.metricsAddr), logx.Err(err))
			}
		}()
		log.Info("serving metrics", logx.String("addr", rf.metricsAddr))
	}

	if rf.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: rf.redisAddr})
		defer func() { _ = rdb.Close() }()

		pctx, pcancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			log.Warn("journal redis unreachable; events will be dropped until it recovers",
				logx.String("addr", rf.redisAddr), logx.Err(err))
		}
		pcancel()

		j, err := journal.New(journal.Config{
			Redis:  rdb,
			Stream: rf.journalStream,
			MaxLen: rf.journalMaxLen,
			Logger: log,
		})
		if err != nil {
			return err
		}
		observers = append(observers, j)
		log.Info("journaling task events", logx.String("stream", j.Stream()))
	}

	r := runner.New(runner.Options{
		Logger:      log,
		Observers:   observers,
		ExecTimeout: rf.execTimeout,
	})
	defer r.Close()

	if err := r.Apply(f); err != nil {
		log.Error("some tasks failed to start", logx.Err(err))
	}
	log.Info("tasks started", logx.Int("count", len(r.Tasks())), logx.String("config", rf.configPath))

	w := &config.Watcher{Path: rf.configPath, Fs: fs, Log: log, Initial: initial}
	go func() {
		_ = w.Run(ctx, func(nf *config.File) {
			notify(log, daemon.SdNotifyReloading)
			if err := r.Apply(nf); err != nil {
				log.Warn("task file applied with errors", logx.Err(err))
			} else {
				log.Info("task file reloaded", logx.Int("count", len(r.Tasks())))
			}
			notify(log, daemon.SdNotifyReady)
		})
	}()

	notify(log, daemon.SdNotifyReady)
	<-ctx.Done()
	notify(log, daemon.SdNotifyStopping)
	log.Info("shutting down")

	if srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}
	return nil
}

func notify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("systemd notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent && log.Enabled(zerolog.DebugLevel) {
		log.Debug("systemd notified", logx.String("state", state))
	}
}
