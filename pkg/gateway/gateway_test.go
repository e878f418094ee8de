package gateway_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/bridgecore/coordinator/pkg/bridge"
	"github.com/bridgecore/coordinator/pkg/connector"
	"github.com/bridgecore/coordinator/pkg/coordinator"
	"github.com/bridgecore/coordinator/pkg/gateway"
	"github.com/bridgecore/coordinator/pkg/registry"
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

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed gateway tests")
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

const evmNetworkID = bridge.NetworkID(1)

// evmSignerAddress/evmSignerSignature is a known-good (signature,
// address) pair reused from the auth-proof package's own fixtures, so
// these tests can authenticate as a real sender without a live wallet.
const (
	evmSignerSignature = "d29bb47954dc2c0d67778507d9a96852bd0da75dce2337009fcce23a6dedb5625ad5541523ac3c2959c0d31b60b62b980a3c778fd903cedf9f17a99ba9d2152e1b"
	evmSignerAddress   = "3095f955da700b96215cffc9bc64ab2e69eb7dab"
)

// setupGateway wires a coordinator over a real test database to an
// httptest server fronting the gateway's router.
func setupGateway(t *testing.T) (context.Context, *httptest.Server, *coordinator.Coordinator) {
	t.Helper()

	ctx, s := setupStore(t)

	c := coordinator.New(coordinator.Config{TxPendingTime: time.Second}, s, coordinator.NewSystemTimeSource(), zap.NewNop())

	evm := connector.NewFake(registry.NetworkMetadata{Type: bridge.NetworkTypeEvm, ID: evmNetworkID, Name: "goerli"}, c.Events())
	c.RegisterConnector(evm)

	c.Start(ctx)
	t.Cleanup(c.Shutdown)

	srv := gateway.NewServer(gateway.Config{}, c, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return ctx, ts, c
}

func insertTestTransfer(t *testing.T, ctx context.Context, s *store.Store, senderAddress []byte) uint64 {
	t.Helper()

	write, err := s.WriteTx(ctx)
	require.NoError(t, err)
	defer write.Discard()

	tokenID, err := write.InsertToken(ctx, "TEST", "Test Token")
	require.NoError(t, err)

	contract := bridge.NewAddress(evmNetworkID, make([]byte, bridge.EvmAddressLength))
	require.NoError(t, write.InsertNetworkToken(ctx, evmNetworkID, tokenID, contract, 18))

	txID, err := write.InsertTransaction(ctx, bridge.NewTxHash(evmNetworkID, make([]byte, bridge.TxHashLength)), 1, time.Now(), bridge.NewAddress(evmNetworkID, senderAddress))
	require.NoError(t, err)

	sender := bridge.NewAddress(evmNetworkID, senderAddress)
	recipient := bridge.NewAddress(evmNetworkID, make([]byte, bridge.EvmAddressLength))
	transferID, err := write.InsertTransfer(ctx, txID, tokenID, uint256.NewInt(1_000_000_000_000_000_000), sender, recipient)
	require.NoError(t, err)

	require.NoError(t, write.Commit())

	return transferID
}

func getJSON(t *testing.T, base string, path string, query url.Values, out any) *http.Response {
	t.Helper()

	u := base + path
	if query != nil {
		u += "?" + query.Encode()
	}

	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func TestConnectedNetworksListsRegisteredNetwork(t *testing.T) {
	_, ts, _ := setupGateway(t)

	var body map[string]any
	resp := getJSON(t, ts.URL, "/networks", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	networks, ok := body["networks"].([]any)
	require.True(t, ok)
	require.Len(t, networks, 1)

	first := networks[0].(map[string]any)
	require.Equal(t, "goerli", first["name"])
	require.Equal(t, "evm", first["type"])
}

func TestSupportedTokensReturnsRegisteredToken(t *testing.T) {
	ctx, ts, c := setupGateway(t)
	insertTestTransfer(t, ctx, c.Store(), make([]byte, bridge.EvmAddressLength))
	require.NoError(t, c.LoadTokens(ctx))

	var body map[string]any
	resp := getJSON(t, ts.URL, "/tokens", url.Values{"network_id": {"1"}}, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tokens, ok := body["tokens"].([]any)
	require.True(t, ok)
	require.Len(t, tokens, 1)
	require.Equal(t, "TEST", tokens[0].(map[string]any)["short_name"])
}

func TestTransferHistoryRequiresValidSignature(t *testing.T) {
	_, ts, _ := setupGateway(t)

	resp, err := http.Get(ts.URL + "/transfers/history?network_id=1&signature=00")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransferHistoryReturnsSendersTransfers(t *testing.T) {
	ctx, ts, c := setupGateway(t)

	senderAddress, err := hex.DecodeString(evmSignerAddress)
	require.NoError(t, err)
	insertTestTransfer(t, ctx, c.Store(), senderAddress)

	query := url.Values{
		"network_id": {"1"},
		"signature":  {evmSignerSignature},
	}

	var body map[string]any
	resp := getJSON(t, ts.URL, "/transfers/history", query, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	statuses, ok := body["statuses"].([]any)
	require.True(t, ok)
	require.Len(t, statuses, 1)
	require.Equal(t, float64(1), body["total_size"])

	row := statuses[0].(map[string]any)
	require.Equal(t, "WAITING", row["status"])
	require.Equal(t, "1000000000000000000", row["amount"])
}

func TestCancelTransferRejectsMismatchedSender(t *testing.T) {
	ctx, ts, c := setupGateway(t)

	transferID := insertTestTransfer(t, ctx, c.Store(), make([]byte, bridge.EvmAddressLength))

	payload := map[string]any{
		"network_id": 1,
		"signature":  evmSignerSignature,
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(
		ts.URL+"/transfers/"+strconv.FormatUint(transferID, 10)+"/cancel",
		"application/json",
		bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEstimateTransferQueriesBothConnectors(t *testing.T) {
	_, ts, c := setupGateway(t)

	casper := connector.NewFake(registry.NetworkMetadata{Type: bridge.NetworkTypeCasper, ID: bridge.NetworkID(2), Name: "casper-test"}, c.Events())
	c.RegisterConnector(casper)

	payload := map[string]any{
		"sender_network":    "goerli",
		"recipient_network": "casper-test",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/transfers/estimate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "0", out["fee"])
	require.Equal(t, "0", out["fee_percentage"])
	require.Equal(t, float64(60), out["estimated_confirmation"])
}
