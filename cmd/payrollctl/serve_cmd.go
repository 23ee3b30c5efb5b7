package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/payroll-config/modules/payroll/presentation/controllers"
	"github.com/iota-uz/payroll-config/pkg/configuration"
	"github.com/iota-uz/payroll-config/pkg/metrics"
	"github.com/iota-uz/payroll-config/pkg/middleware"
	"github.com/iota-uz/payroll-config/pkg/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the approval dashboard, audit API, health and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			conf := rt.conf
			logger := conf.Logger()

			var db controllers.Pinger
			if rt.pool != nil {
				db = rt.pool
			}
			ctrls := []server.Controller{
				controllers.NewHealthController(db),
				controllers.NewPayrollAPIController(rt.module.Dashboard, rt.module.Audit),
			}
			if conf.Prometheus.Enabled {
				ctrls = append(ctrls, metrics.NewPrometheusController(conf.Prometheus.Path))
			}
			middlewares := serveMiddlewares(conf.HTTP, logger, rt.pool)

			srv := server.NewHTTPServer(ctrls, middlewares, nil, nil)
			logger.Infof("Listening on: %s", conf.SocketAddress)
			if err := srv.Start(ctx, conf.SocketAddress, conf.HTTP.ShutdownTimeout); err != nil {
				return errors.Wrap(err, "http server")
			}
			return nil
		},
	}
}

// serveMiddlewares builds the request stack. WithLogger goes first so every
// later middleware runs under the request span.
func serveMiddlewares(opts configuration.HTTPOptions, logger *logrus.Logger, pool *pgxpool.Pool) []mux.MiddlewareFunc {
	return []mux.MiddlewareFunc{
		middleware.WithLogger(logger),
		middleware.TracedMiddleware("database"),
		middleware.WithPool(pool),
		middleware.TracedMiddleware("cors"),
		middleware.Cors(opts.AllowedOrigins...),
		middleware.TracedMiddleware("rateLimit"),
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: opts.RateLimitRPS,
			Period:            time.Second,
			Store:             middleware.NewMemoryStore(),
		}),
	}
}
