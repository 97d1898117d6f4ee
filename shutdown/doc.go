// Package shutdown stops nexa's long-lived components in order.
//
// Components register a handler under a phase. On SIGINT, SIGTERM or an
// explicit Shutdown call the coordinator runs the phases in ascending order,
// handlers within one phase concurrently, all under one deadline:
//
//	coord := shutdown.NewCoordinator(shutdown.Config{Timeout: 15 * time.Second})
//	coord.Register("http", shutdown.PhaseHTTP, shutdown.HTTPServer(srv))
//	coord.Register("sessions", shutdown.PhaseSessions, shutdown.Func(store.Close))
//	coord.Register("telemetry", shutdown.PhaseTelemetry, provider.Shutdown)
//
//	err := coord.Wait(ctx) // blocks until a signal or ctx is done
//
// The HTTP server stops first so no search starts while session state and
// the trace pipeline are released.
package shutdown
