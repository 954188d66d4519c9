package cmdline

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/checkpoint"
	"github.com/castforge/castforge/internal/config"
	"github.com/castforge/castforge/internal/ledger"
	"github.com/castforge/castforge/internal/orchestrator"
)

// buildFacade wires an orchestrator.Facade from cfg: breaker table,
// ledger (file sink + Prometheus metrics), a file checkpoint store, and
// the refadapters registry. The caller must invoke the returned cleanup
// func once done.
func buildFacade(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*orchestrator.Facade, func(), error) {
	breakers := breaker.NewTable(cfg.ToBreakerConfig(), logger)

	var sink ledger.Sink
	if cfg.LedgerSink != "" {
		fileSink, err := ledger.NewFileSink(cfg.LedgerSink)
		if err != nil {
			return nil, func() {}, exitWith(3, apperrors.FailedTo("open ledger sink", err))
		}
		sink = fileSink
	}
	metrics := ledger.NewMetrics(prometheus.DefaultRegisterer)
	led := ledger.New(sink, metrics)

	store, err := checkpoint.NewFileStore(cfg.CheckpointPath)
	if err != nil {
		return nil, func() {}, exitWith(3, apperrors.FailedTo("open checkpoint store", err))
	}

	adapters, cleanupAdapters, err := buildAdapters(ctx, cfg, breakers, logger)
	cleanup := func() {
		cleanupAdapters()
		if sink != nil {
			sink.Close()
		}
	}
	if err != nil {
		return nil, cleanup, exitWith(3, err)
	}

	facade := &orchestrator.Facade{
		Adapters:       adapters,
		Breakers:       breakers,
		Ledger:         led,
		Checkpoints:    store,
		Logger:         logger,
		MaxConcurrency: cfg.ParallelismCap,
	}
	return facade, cleanup, nil
}
