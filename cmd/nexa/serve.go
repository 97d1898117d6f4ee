package main

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/nexa/prompt"
	"github.com/vinayprograms/nexa/session"
	"github.com/vinayprograms/nexa/shutdown"
	"github.com/vinayprograms/nexa/web"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search UI over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8501)")
	return cmd
}

func runServe(ctx context.Context, opts *cliOptions, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	engine, err := a.newEngine(ctx)
	if err != nil {
		a.close(ctx)
		return err
	}

	store := session.NewStore(session.WithLogger(a.logger.WithComponent("session")))
	srv := web.NewServer(engine, store, web.Config{
		DefaultMode:     prompt.ParseMode(a.cfg.Search.DefaultMode),
		DefaultLanguage: prompt.ParseLanguage(a.cfg.Search.DefaultLanguage),
		SessionIdle:     a.cfg.Server.SessionIdle,
	}, web.WithLogger(a.logger), web.WithExporter(a.exporter))
	httpSrv := srv.HTTPServer(addr)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go srv.SweepSessions(runCtx)

	coord := shutdown.NewCoordinator(shutdown.Config{
		Timeout: a.cfg.Server.ShutdownTimeout,
		Logger:  a.logger,
	})
	coord.Register("http", shutdown.PhaseHTTP, shutdown.HTTPServer(httpSrv))
	coord.Register("sessions", shutdown.PhaseSessions, shutdown.Func(func() {
		cancel()
		store.Close()
	}))
	coord.Register("limiter", shutdown.PhaseSessions, func(context.Context) error {
		return a.limiter.Close()
	})
	coord.Register("events", shutdown.PhaseTelemetry, func(context.Context) error {
		return a.exporter.Close()
	})
	if a.provider != nil {
		coord.Register("tracing", shutdown.PhaseTelemetry, a.provider.Shutdown)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server_started", map[string]interface{}{
			"addr":  addr,
			"model": engine.Model(),
		})
		if err := httpSrv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	waitErr := coord.Wait(runCtx)
	select {
	case err := <-serveErr:
		return err
	default:
		return waitErr
	}
}
