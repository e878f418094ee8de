// Command bridge runs the cross-chain bridge coordinator: it wires the
// network/token registries, registers a connector per configured chain,
// starts the coordinator's event loop, and serves the gateway's HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/bridgecore/coordinator/pkg/bridge"
	"github.com/bridgecore/coordinator/pkg/config"
	"github.com/bridgecore/coordinator/pkg/connector"
	"github.com/bridgecore/coordinator/pkg/coordinator"
	"github.com/bridgecore/coordinator/pkg/gateway"
	"github.com/bridgecore/coordinator/pkg/registry"
	"github.com/bridgecore/coordinator/pkg/store"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	addr       = flag.String("addr", "", "Gateway listen address, overrides config")
	signerAddr = flag.String("signer-addr", "", "Signer service address (unused: signing is out of scope, accepted for operator parity)")
	embedDB    = flag.Bool("embed-db", false, "Run with an in-process Postgres rather than dialing a configured one (unsupported, reserved)")
	initTables = flag.Bool("init-tables", false, "Create the database schema on startup if missing")
	connectors = flag.String("connectors", "", "Comma-separated name:type[:networkID] list of demo connectors to register, e.g. goerli:evm:1")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Gateway.Addr = *addr
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *signerAddr != "" {
		logger.Warn("signer-addr given but signing is out of scope for this process", zap.String("signer_addr", *signerAddr))
	}
	if *embedDB {
		logger.Warn("embed-db requested but unsupported; dialing the configured database instead")
	}

	logger.Info("starting bridge coordinator")

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
		<-sigCh
		logger.Warn("second interrupt received, forcing exit")
		os.Exit(1)
	}()

	st, err := store.Connect(ctx, store.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer st.Close()
	logger.Info("database connection established", zap.Stringer("store", st))

	if *initTables {
		if err := store.CreateTables(ctx, st.DB()); err != nil {
			logger.Fatal("failed to create database schema", zap.Error(err))
		}
		logger.Info("database schema ensured")
	}

	coord := coordinator.New(coordinator.Config{TxPendingTime: cfg.Bridge.TxPendingTime}, st, coordinator.NewSystemTimeSource(), logger)

	registered, err := registerConnectors(coord, *connectors)
	if err != nil {
		logger.Fatal("failed to register connectors", zap.Error(err))
	}
	for _, name := range registered {
		logger.Info("registered connector", zap.String("network", name))
	}

	if err := coord.LoadTokens(ctx); err != nil {
		logger.Fatal("failed to load token registry", zap.Error(err))
	}

	coord.Start(ctx)
	defer coord.Shutdown()

	srv := gateway.NewServer(gateway.Config{Addr: cfg.Gateway.Addr, ShutdownTimeout: cfg.Gateway.ShutdownTimeout}, coord, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Error("gateway exited", zap.Error(err))
	}

	logger.Info("bridge coordinator stopped")
}

// registerConnectors parses a comma-separated name:type[:networkID] list
// and registers a demo connector.Fake for each entry. Concrete per-chain
// connectors are an external collaborator and out of scope here.
func registerConnectors(coord *coordinator.Coordinator, spec string) ([]string, error) {
	if spec == "" {
		return nil, nil
	}

	var names []string
	var networkID uint32
	for _, entry := range strings.Split(spec, ",") {
		fields := strings.Split(strings.TrimSpace(entry), ":")
		if len(fields) < 2 {
			return nil, fmt.Errorf("invalid connector spec %q, want name:type[:networkID]", entry)
		}

		name, typeName := fields[0], fields[1]
		networkType, err := parseNetworkType(typeName)
		if err != nil {
			return nil, fmt.Errorf("connector %q: %w", name, err)
		}

		id := networkID
		networkID++
		if len(fields) > 2 {
			if _, err := fmt.Sscanf(fields[2], "%d", &id); err != nil {
				return nil, fmt.Errorf("connector %q: invalid network id %q: %w", name, fields[2], err)
			}
		}

		fake := connector.NewFake(registry.NetworkMetadata{
			Type: networkType,
			ID:   bridge.NetworkID(id),
			Name: name,
		}, coord.Events())
		coord.RegisterConnector(fake)
		names = append(names, name)
	}

	return names, nil
}

func parseNetworkType(s string) (bridge.NetworkType, error) {
	switch strings.ToLower(s) {
	case "evm":
		return bridge.NetworkTypeEvm, nil
	case "casper":
		return bridge.NetworkTypeCasper, nil
	case "solana":
		return bridge.NetworkTypeSolana, nil
	default:
		return 0, fmt.Errorf("unknown network type %q", s)
	}
}
