// Package bridge holds the coordinator's core domain types: network and
// token identifiers, canonical addresses and transaction hashes, and the
// events a connector reports to the coordinator.
package bridge

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// Tag bytes for the Casper address family (§4.1).
const (
	CasperTagAccount byte = 0
	CasperTagHash    byte = 1
)

// Canonical byte lengths per chain family (§3).
const (
	CasperAddressLength = 33
	EvmAddressLength    = 20
	SolanaAddressLength = 32

	TxHashLength       = 32
	SolanaTxHashLength = 64
)

// NetworkID is a stable 32-bit opaque network identifier.
type NetworkID uint32

func (id NetworkID) String() string { return fmt.Sprintf("%d", uint32(id)) }

// TokenID is a stable 32-bit opaque token identifier.
type TokenID uint32

func (id TokenID) String() string { return fmt.Sprintf("%d", uint32(id)) }

// NetworkType selects the codec and auth-proof algorithm for a network.
type NetworkType int

const (
	NetworkTypeCasper NetworkType = iota
	NetworkTypeEvm
	NetworkTypeSolana
)

func (t NetworkType) String() string {
	switch t {
	case NetworkTypeCasper:
		return "casper"
	case NetworkTypeEvm:
		return "evm"
	case NetworkTypeSolana:
		return "solana"
	default:
		return "unknown"
	}
}

// Address is a chain-native address in its canonical byte form.
type Address struct {
	NetworkID NetworkID
	Data      []byte
}

// NewAddress returns an Address over the given network and canonical bytes.
func NewAddress(networkID NetworkID, data []byte) Address {
	return Address{NetworkID: networkID, Data: append([]byte(nil), data...)}
}

// Equal reports structural equality, matching §3's "equality is structural".
func (a Address) Equal(o Address) bool {
	if a.NetworkID != o.NetworkID || len(a.Data) != len(o.Data) {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// Key is a comparable form of the address suitable for use as a map key.
func (a Address) Key() string {
	return fmt.Sprintf("%d:%s", a.NetworkID, hex.EncodeToString(a.Data))
}

func (a Address) String() string {
	return fmt.Sprintf("%d:%s", a.NetworkID, hex.EncodeToString(a.Data))
}

// TxHash is a chain-native transaction hash in its canonical byte form.
type TxHash struct {
	NetworkID NetworkID
	Data      []byte
}

// NewTxHash returns a TxHash over the given network and canonical bytes.
func NewTxHash(networkID NetworkID, data []byte) TxHash {
	return TxHash{NetworkID: networkID, Data: append([]byte(nil), data...)}
}

func (h TxHash) String() string {
	return fmt.Sprintf("%d:%s", h.NetworkID, hex.EncodeToString(h.Data))
}

// StringAddress is the printable form of an Address, produced only by the
// registry's codecs: a network name paired with the chain-native text.
type StringAddress struct {
	NetworkName string
	Address     string
}

func (a StringAddress) String() string {
	return fmt.Sprintf("%s:%s", a.NetworkName, a.Address)
}

// StringTxHash is the printable form of a TxHash.
type StringTxHash struct {
	NetworkName string
	Hash        string
}

func (h StringTxHash) String() string {
	return fmt.Sprintf("%s:%s", h.NetworkName, h.Hash)
}

// ConfirmedTx is a transaction a connector has observed confirmed on its
// chain, carrying the sender address that produced it.
type ConfirmedTx struct {
	Hash        TxHash
	Sender      Address
	BlockNumber uint64
}

// TransferStatus is the canonical screaming-snake-case status spelling used
// across the wire and in storage (§4.5, §6).
type TransferStatus string

const (
	TransferStatusWaiting    TransferStatus = "WAITING"
	TransferStatusConfirming TransferStatus = "CONFIRMING"
	TransferStatusCancelled  TransferStatus = "CANCELLED"
	TransferStatusFinished   TransferStatus = "FINISHED"
)

// BridgeTokenTransferIn is the event a source connector reports when a user
// deposits tokens to be bridged out to another network.
type BridgeTokenTransferIn struct {
	From   Address
	To     StringAddress
	Amount *uint256.Int
	Token  Address
	Tx     ConfirmedTx
}

// BridgeTokenTransferOut is the event a destination connector reports when
// it has released tokens to a recipient.
type BridgeTokenTransferOut struct {
	From   StringAddress
	To     Address
	Amount *uint256.Int
	Token  Address
	Tx     ConfirmedTx
}

// BridgeEvent is the tagged union the event loop consumes.
type BridgeEvent struct {
	TransferIn  *BridgeTokenTransferIn
	TransferOut *BridgeTokenTransferOut
}
