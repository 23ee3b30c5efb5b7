package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/iota-uz/payroll-config/modules/payroll"
	"github.com/iota-uz/payroll-config/pkg/composables"
	"github.com/iota-uz/payroll-config/pkg/configuration"
	"github.com/iota-uz/payroll-config/pkg/eventbus"
	"github.com/iota-uz/payroll-config/pkg/logging"
)

type engine struct {
	conf   *configuration.Configuration
	module *payroll.Module
	pool   *pgxpool.Pool
	bus    eventbus.EventBus
	close  func()
}

// Context returns ctx carrying the pool, when the engine runs on postgres.
func (rt *engine) Context(ctx context.Context) context.Context {
	if rt.pool == nil {
		return ctx
	}
	return composables.WithPool(ctx, rt.pool)
}

func connectDB(ctx context.Context, conf *configuration.Configuration) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, errors.Wrap(err, "db connect failed")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "db ping failed")
	}
	return pool, nil
}

func bootstrap(ctx context.Context) (*engine, error) {
	conf := configuration.Use()
	logger := conf.Logger()

	closers := []func(){conf.Unload}
	if conf.OpenTelemetry.Enabled {
		closers = append(closers, logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL))
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	rt := &engine{conf: conf, bus: eventbus.NewEventPublisher(logger)}
	rt.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if conf.Payroll.Storage == configuration.StoragePostgres {
		pool, err := connectDB(ctx, conf)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.pool = pool
		closers = append(closers, pool.Close)
	}

	module, err := payroll.NewModule(conf.Payroll, rt.bus, logger)
	if err != nil {
		rt.close()
		return nil, errors.Wrap(err, "payroll module")
	}
	rt.module = module
	return rt, nil
}
