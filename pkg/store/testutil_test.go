package store_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bridgecore/coordinator/pkg/store"
)

func requireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if sock == "" {
			continue
		}
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed store tests")
}

func setupStore(t *testing.T) (context.Context, *store.Store) {
	t.Helper()
	requireDockerAccess(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("bridge_test"),
		postgres.WithUsername("bridge_test"),
		postgres.WithPassword("bridge_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	cfg := store.Config{
		Host:     host,
		Port:     uint16(port.Int()),
		User:     "bridge_test",
		Password: "bridge_test",
		Database: "bridge_test",
		SSLMode:  "disable",
	}

	var s *store.Store
	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		s, err = store.Connect(ctx, cfg)
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			t.Fatalf("failed to connect to test database after %d attempts: %v", maxRetries, err)
		}
		time.Sleep(time.Duration(100*(1<<uint(i))) * time.Millisecond)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := store.CreateTables(ctx, s.DB()); err != nil {
		t.Fatalf("failed to create tables: %v", err)
	}

	return ctx, s
}
