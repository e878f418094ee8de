package connector

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/bridgecore/coordinator/pkg/bridge"
	"github.com/bridgecore/coordinator/pkg/registry"
)

// ErrFakeConnectorFailing is returned by BridgeOut when the fake has
// been switched into its failing mode.
var ErrFakeConnectorFailing = errors.New("connector: fake connector is in failing mode")

// Fake is an in-memory Connector double for coordinator tests: it
// records BridgeOut calls, and BridgeOut and BridgeIn emit a matching
// BridgeEvent on the channel it was constructed with, mirroring a real
// connector's event-reporting side effect without touching a chain.
type Fake struct {
	metadata registry.NetworkMetadata
	events   chan<- bridge.BridgeEvent

	blockCounter uint64
	hashCounter  uint64
	hashPrefix   [8]byte

	mu      sync.Mutex
	failing atomic.Bool
	calls   []BridgeOutCall
}

// BridgeOutCall records one BridgeOut invocation for test assertions.
type BridgeOutCall struct {
	Recipient  bridge.Address
	Token      bridge.Address
	Amount     *uint256.Int
	Source     bridge.StringAddress
	TransferID uint64
}

// NewFake returns a Fake serving metadata and reporting events onto
// events.
func NewFake(metadata registry.NetworkMetadata, events chan<- bridge.BridgeEvent) *Fake {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(metadata.ID))

	return &Fake{
		metadata:     metadata,
		events:       events,
		blockCounter: 1,
		hashCounter:  1,
		hashPrefix:   prefix,
	}
}

// SetFailing toggles whether BridgeOut returns ErrFakeConnectorFailing.
func (f *Fake) SetFailing(failing bool) {
	f.failing.Store(failing)
}

// Calls returns a snapshot of every recorded BridgeOut call.
func (f *Fake) Calls() []BridgeOutCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BridgeOutCall(nil), f.calls...)
}

// Metadata implements Connector.
func (f *Fake) Metadata() registry.NetworkMetadata {
	return f.metadata
}

func (f *Fake) generateTx() bridge.ConfirmedTx {
	block := atomic.AddUint64(&f.blockCounter, 1) - 1
	hashNum := atomic.AddUint64(&f.hashCounter, 1) - 1

	hashData := make([]byte, bridge.TxHashLength)
	copy(hashData, f.hashPrefix[:])
	binary.BigEndian.PutUint64(hashData[len(hashData)-8:], hashNum)

	senderData := make([]byte, addressLength(f.metadata.Type))
	senderData[len(senderData)-1] = 42

	return bridge.ConfirmedTx{
		Hash:        bridge.NewTxHash(f.metadata.ID, hashData),
		Sender:      bridge.NewAddress(f.metadata.ID, senderData),
		BlockNumber: block,
	}
}

func addressLength(t bridge.NetworkType) int {
	switch t {
	case bridge.NetworkTypeCasper:
		return bridge.CasperAddressLength
	case bridge.NetworkTypeEvm:
		return bridge.EvmAddressLength
	case bridge.NetworkTypeSolana:
		return bridge.SolanaAddressLength
	default:
		return bridge.EvmAddressLength
	}
}

// BridgeOut implements Connector: it synthesizes a destination
// transaction and reports a TransferOut event, matching the behavior a
// real connector's on-chain bridge_out call plus its event watcher
// would produce together.
func (f *Fake) BridgeOut(ctx context.Context, recipient, token bridge.Address, amount *uint256.Int, source bridge.StringAddress, transferID uint64) (bridge.TxHash, error) {
	if f.failing.Load() {
		return bridge.TxHash{}, ErrFakeConnectorFailing
	}

	f.mu.Lock()
	f.calls = append(f.calls, BridgeOutCall{
		Recipient: recipient, Token: token, Amount: amount, Source: source, TransferID: transferID,
	})
	f.mu.Unlock()

	tx := f.generateTx()

	event := bridge.BridgeEvent{
		TransferOut: &bridge.BridgeTokenTransferOut{
			From:   source,
			To:     recipient,
			Amount: amount,
			Token:  token,
			Tx:     tx,
		},
	}

	select {
	case f.events <- event:
	case <-ctx.Done():
		return bridge.TxHash{}, ctx.Err()
	}

	return tx.Hash, nil
}

// BridgeInSignature implements Connector with a deterministic stub
// signature; the fake is only exercised for the BridgeOut path the
// coordinator's tests need.
func (f *Fake) BridgeInSignature(ctx context.Context, sender, token bridge.Address, nonce uint64, amount *uint256.Int, destination bridge.StringAddress, commission *uint256.Int) (BridgeInSignature, error) {
	return BridgeInSignature{Signature: []byte("fake-signature"), Nonce: nonce}, nil
}

// CancelSignature implements Connector with a deterministic stub
// signature.
func (f *Fake) CancelSignature(ctx context.Context, token, recipient bridge.Address, nonce uint64, commission, amount *uint256.Int) (CancelSignature, error) {
	return CancelSignature{Signature: []byte("fake-cancel-signature"), Nonce: nonce}, nil
}

// EstimateTransfer implements Connector with a fixed zero commission,
// fee percentage, and estimated time.
func (f *Fake) EstimateTransfer(ctx context.Context, amount *uint256.Int, recipientNetworkName string) (TransferEstimate, error) {
	return TransferEstimate{Commission: uint256.NewInt(0), FeePercentage: uint256.NewInt(0), EstimatedTime: 0}, nil
}

// BridgeIn synthesizes an inbound deposit on this connector's network
// and reports a TransferIn event, for driving the coordinator in tests.
func (f *Fake) BridgeIn(ctx context.Context, from bridge.Address, to bridge.StringAddress, token bridge.Address, amount *uint256.Int) error {
	from = bridge.NewAddress(f.metadata.ID, from.Data)

	event := bridge.BridgeEvent{
		TransferIn: &bridge.BridgeTokenTransferIn{
			From:   from,
			To:     to,
			Amount: amount,
			Token:  token,
			Tx:     f.generateTx(),
		},
	}

	select {
	case f.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
