// Package connector defines the capability interface the coordinator
// uses to talk to a network, and an in-memory test double implementing
// it.
package connector

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/bridgecore/coordinator/pkg/bridge"
	"github.com/bridgecore/coordinator/pkg/registry"
)

// BridgeInSignature is the signed payload a sender submits to the
// bridge contract on the connector's own network to deposit funds.
type BridgeInSignature struct {
	Signature []byte
	Nonce     uint64
	ExpiresAt int64
}

// CancelSignature authorizes the transfer's source network to refund a
// cancelled transfer back to its sender.
type CancelSignature struct {
	Signature []byte
	Nonce     uint64
}

// TransferEstimate is the fee and timing estimate a connector returns
// for a prospective transfer. FeePercentage is commission expressed as
// a rate rather than an absolute amount; the gateway's estimate_transfer
// handler (§4.8) takes Commission from the recipient network's estimate
// and FeePercentage from the sender network's.
type TransferEstimate struct {
	Commission    *uint256.Int
	FeePercentage *uint256.Int
	EstimatedTime int64
}

// Connector is the capability set a network's driver must implement for
// the coordinator to route transfers through it. One connector serves
// one registered network.
type Connector interface {
	// Metadata returns the network this connector serves.
	Metadata() registry.NetworkMetadata

	// BridgeOut releases amount of token to recipient on this
	// connector's network, returning the destination transaction hash.
	BridgeOut(ctx context.Context, recipient, token bridge.Address, amount *uint256.Int, source bridge.StringAddress, transferID uint64) (bridge.TxHash, error)

	// BridgeInSignature signs the payload a sender submits to this
	// connector's network to deposit funds into the bridge.
	BridgeInSignature(ctx context.Context, sender, token bridge.Address, nonce uint64, amount *uint256.Int, destination bridge.StringAddress, commission *uint256.Int) (BridgeInSignature, error)

	// CancelSignature signs the payload that refunds a cancelled
	// transfer back to its sender on this connector's network.
	CancelSignature(ctx context.Context, token, recipient bridge.Address, nonce uint64, commission, amount *uint256.Int) (CancelSignature, error)

	// EstimateTransfer estimates the commission and time to bridge
	// amount to the network named recipientNetworkName.
	EstimateTransfer(ctx context.Context, amount *uint256.Int, recipientNetworkName string) (TransferEstimate, error)
}
