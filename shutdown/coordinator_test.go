package shutdown

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vinayprograms/nexa/logging"
)

func newTestCoordinator(cfg Config) *Coordinator {
	cfg.Logger = logging.Nop()
	return NewCoordinator(cfg)
}

func TestShutdown_SingleHandler(t *testing.T) {
	coord := newTestCoordinator(Config{})

	called := false
	coord.Register("test", PhaseHTTP, func(ctx context.Context) error {
		called = true
		return nil
	})

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !called {
		t.Fatal("handler not called")
	}
	select {
	case <-coord.Done():
	default:
		t.Fatal("Done not closed")
	}

	res := coord.Result()
	if res == nil || len(res.Handlers) != 1 || res.Handlers[0].Name != "test" {
		t.Fatalf("Result = %+v", res)
	}
	if len(res.Failed()) != 0 {
		t.Errorf("Failed = %v", res.Failed())
	}
}

func TestShutdown_PhaseOrder(t *testing.T) {
	coord := newTestCoordinator(Config{})

	var mu sync.Mutex
	var order []string
	record := func(name string) Handler {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	coord.Register("telemetry", PhaseTelemetry, record("telemetry"))
	coord.Register("http", PhaseHTTP, record("http"))
	coord.Register("sessions", PhaseSessions, record("sessions"))

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"http", "sessions", "telemetry"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestShutdown_SamePhaseConcurrent(t *testing.T) {
	coord := newTestCoordinator(Config{})

	var running, peak int32
	h := func(context.Context) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}
	coord.Register("a", PhaseSessions, h)
	coord.Register("b", PhaseSessions, h)

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&peak) != 2 {
		t.Errorf("peak concurrency = %d, want 2", peak)
	}
}

func TestShutdown_HandlerFailure(t *testing.T) {
	tests := []struct {
		name        string
		stopOnError bool
		wantLater   bool
	}{
		{"continue", false, true},
		{"stop", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := newTestCoordinator(Config{StopOnError: tt.stopOnError})
			later := false
			coord.Register("http", PhaseHTTP, func(context.Context) error { return stderrors.New("boom") })
			coord.Register("telemetry", PhaseTelemetry, func(context.Context) error {
				later = true
				return nil
			})

			err := coord.Shutdown(context.Background())
			if !stderrors.Is(err, ErrHandlerFailed) {
				t.Fatalf("error = %v, want ErrHandlerFailed", err)
			}
			if later != tt.wantLater {
				t.Errorf("later phase ran = %v, want %v", later, tt.wantLater)
			}
			if failed := coord.Result().Failed(); len(failed) != 1 || failed[0] != "http" {
				t.Errorf("Failed = %v", failed)
			}
		})
	}
}

func TestShutdown_Timeout(t *testing.T) {
	coord := newTestCoordinator(Config{})
	coord.Register("slow", PhaseHTTP, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	later := false
	coord.Register("telemetry", PhaseTelemetry, func(context.Context) error {
		later = true
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := coord.Shutdown(ctx); !stderrors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if later {
		t.Error("phase ran after deadline")
	}
}

func TestShutdown_Once(t *testing.T) {
	coord := newTestCoordinator(Config{})
	var calls int32
	coord.Register("h", PhaseHTTP, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := coord.Shutdown(context.Background()); !stderrors.Is(err, ErrAlreadyShutdown) {
		t.Errorf("second Shutdown error = %v", err)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d", calls)
	}
}

func TestWait_ContextCanceled(t *testing.T) {
	coord := newTestCoordinator(Config{Timeout: time.Second})
	called := make(chan struct{})
	coord.Register("h", PhaseHTTP, func(context.Context) error {
		close(called)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- coord.Wait(ctx) }()
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
	select {
	case <-called:
	default:
		t.Error("handler not called")
	}
}

func TestFunc(t *testing.T) {
	called := false
	if err := Func(func() { called = true })(context.Background()); err != nil || !called {
		t.Errorf("Func: called=%v err=%v", called, err)
	}
}

func TestHTTPServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if err := HTTPServer(srv)(context.Background()); err != nil {
		t.Fatalf("HTTPServer() error = %v", err)
	}
	if err := <-served; !stderrors.Is(err, http.ErrServerClosed) {
		t.Errorf("Serve returned %v", err)
	}
}
