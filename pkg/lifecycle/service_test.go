package lifecycle

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/asistros/pkg/registry"
	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"
)

func TestServiceLifecycle(t *testing.T) {
	t.Parallel()

	reg := registry.NewMemoryRegistry()
	info, err := registry.NewServiceBuilder("auth", "1.0.0").WithAddress("127.0.0.1:0").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var (
		mu    sync.Mutex
		steps []string
	)
	record := func(step string) Hook {
		return func(*Service) error {
			mu.Lock()
			steps = append(steps, step)
			mu.Unlock()
			return nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := New("auth").
		App(fiber.New(fiber.Config{DisableStartupMessage: true})).
		Registry(reg, info).
		OnStart(record("start")).
		OnReady(func(s *Service) error {
			if _, err := reg.GetService("auth"); err != nil {
				t.Errorf("service not registered when ready: %v", err)
			}
			cancel()
			return record("ready")(s)
		}).
		OnStop(record("stop")).
		Build()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return")
	}

	if diff := cmp.Diff([]string{"start", "ready", "stop"}, steps); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
	if _, err := reg.GetService("auth"); err == nil {
		t.Error("service still registered after shutdown")
	}
}

func TestServiceStartHookFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("migrate failed")
	svc := New("auth").
		App(fiber.New(fiber.Config{DisableStartupMessage: true})).
		OnStart(func(*Service) error { return boom }).
		Build()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	if err := svc.Serve(context.Background(), ln); !errors.Is(err, boom) {
		t.Errorf("Serve() error = %v, want %v", err, boom)
	}
}
