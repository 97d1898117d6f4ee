package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/vinayprograms/nexa/logging"
)

const defaultTimeout = 30 * time.Second

// Coordinator runs registered handlers once, phase by phase.
type Coordinator struct {
	config Config
	logger *logging.Logger

	mu       sync.Mutex
	handlers []registration
	started  bool
	done     chan struct{}
	result   *Result
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New()
	}
	return &Coordinator{
		config: cfg,
		logger: logger.WithComponent("shutdown"),
		done:   make(chan struct{}),
	}
}

// Register adds a handler to a phase.
func (c *Coordinator) Register(name string, phase int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, handler: h})
}

// Wait blocks until SIGINT, SIGTERM or ctx is done, then shuts down with
// the configured timeout.
func (c *Coordinator) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		c.logger.Info("shutdown_requested")
	case <-c.done:
		return c.Err()
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()
	return c.Shutdown(shutCtx)
}

// Shutdown runs every phase. Only the first call does work; later calls
// return ErrAlreadyShutdown.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyShutdown
	}
	c.started = true
	handlers := append([]registration(nil), c.handlers...)
	c.mu.Unlock()

	res := c.run(ctx, handlers)

	c.mu.Lock()
	c.result = res
	c.mu.Unlock()
	close(c.done)

	fields := map[string]interface{}{"duration": res.Duration.String()}
	if res.Err != nil {
		fields["error"] = res.Err.Error()
		c.logger.Warn("shutdown_complete", fields)
	} else {
		c.logger.Info("shutdown_complete", fields)
	}
	return res.Err
}

// Done is closed once Shutdown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the shutdown error, nil until Done is closed.
func (c *Coordinator) Err() error {
	if r := c.Result(); r != nil {
		return r.Err
	}
	return nil
}

// Result returns the detailed outcome, nil until Done is closed.
func (c *Coordinator) Result() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Coordinator) run(ctx context.Context, handlers []registration) *Result {
	start := time.Now()
	res := &Result{}

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	for _, group := range groupByPhase(handlers) {
		if ctx.Err() != nil {
			res.Err = ErrTimeout
			break
		}
		results := c.runPhase(ctx, group)
		res.Handlers = append(res.Handlers, results...)

		failed := false
		for _, hr := range results {
			if hr.Err != nil {
				failed = true
			}
		}
		if failed {
			res.Err = ErrHandlerFailed
			if c.config.StopOnError {
				break
			}
		}
	}

	res.Duration = time.Since(start)
	return res
}

// runPhase runs one phase's handlers concurrently.
func (c *Coordinator) runPhase(ctx context.Context, group []registration) []HandlerResult {
	results := make([]HandlerResult, len(group))
	var wg sync.WaitGroup
	for i, reg := range group {
		wg.Add(1)
		go func(i int, reg registration) {
			defer wg.Done()
			start := time.Now()
			err := reg.handler(ctx)
			results[i] = HandlerResult{Name: reg.name, Phase: reg.phase, Duration: time.Since(start), Err: err}

			fields := map[string]interface{}{"handler": reg.name, "phase": reg.phase}
			if err != nil {
				fields["error"] = err.Error()
				c.logger.Warn("shutdown_handler_failed", fields)
			} else {
				c.logger.Debug("shutdown_handler_done", fields)
			}
		}(i, reg)
	}
	wg.Wait()
	return results
}

// groupByPhase splits handlers, already sorted by phase, into runs of equal phase.
func groupByPhase(handlers []registration) [][]registration {
	var groups [][]registration
	for i, h := range handlers {
		if i == 0 || h.phase != handlers[i-1].phase {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], h)
	}
	return groups
}
