// Package store is the bridge's persistence layer: bun-backed DAOs and
// read/write transaction sessions over the six tables of the bridge
// schema (transfers, transactions, tokens, network tokens, network
// blocks, network nonces).
package store

import "time"

// TokenDao maps to the 'tokens' table: token header metadata, independent
// of any one network.
type TokenDao struct {
	tableName struct{} `bun:"table:tokens,alias:t"` //nolint:unused
	ID        uint32   `bun:",pk,autoincrement"`
	ShortName string   `bun:",notnull,type:varchar(32)"`
	LongName  string   `bun:",notnull,type:varchar(128)"`
}

// NetworkTokenDao maps to the 'network_tokens' table: a token's contract
// address and decimals on one specific network.
type NetworkTokenDao struct {
	tableName   struct{} `bun:"table:network_tokens,alias:nt"` //nolint:unused
	NetworkID   uint32   `bun:",pk"`
	TokenID     uint32   `bun:",pk"`
	ContractKey []byte   `bun:",notnull"`
	Decimals    uint8    `bun:",notnull"`
}

// TransactionDao maps to the 'transactions' table: one observed,
// confirmed on-chain transaction.
type TransactionDao struct {
	tableName   struct{}  `bun:"table:transactions,alias:tx"` //nolint:unused
	ID          uint64    `bun:",pk,autoincrement"`
	NetworkID   uint32    `bun:",notnull"`
	TxHash      []byte    `bun:",notnull"`
	BlockNumber uint64    `bun:",notnull"`
	SeenAt      time.Time `bun:",notnull,default:current_timestamp"`
	Sender      []byte    `bun:",notnull"`
}

// TransferDao maps to the 'token_transfers' table: the state-machine
// record for one bridge transfer.
type TransferDao struct {
	tableName          struct{} `bun:"table:token_transfers,alias:tr"` //nolint:unused
	ID                 uint64   `bun:",pk,autoincrement"`
	TriggeringTx       uint64   `bun:",notnull"`
	OutboundTx         *uint64  `bun:""`
	TokenID            uint32   `bun:",notnull"`
	Amount             string   `bun:",notnull,type:numeric(78,0)"`
	Status             string   `bun:",notnull,type:varchar(20)"`
	SenderNetworkID    uint32   `bun:",notnull"`
	SenderAddress      []byte   `bun:",notnull"`
	RecipientNetworkID uint32   `bun:",notnull"`
	RecipientAddress   []byte   `bun:",notnull"`
}

// NetworkBlockDao maps to the 'network_blocks' table: the last block a
// connector has reported fully processed for one network.
type NetworkBlockDao struct {
	tableName     struct{} `bun:"table:network_blocks,alias:nb"` //nolint:unused
	NetworkID     uint32   `bun:",pk"`
	LastSeenBlock uint64   `bun:",notnull"`
}

// NetworkNonceDao maps to the 'network_nonces' table: the current
// signature nonce for one network, consumed by each bridge-in or cancel
// signature issued on that network.
type NetworkNonceDao struct {
	tableName struct{} `bun:"table:network_nonces,alias:nn"` //nolint:unused
	NetworkID uint32   `bun:",pk"`
	Nonce     uint64   `bun:",notnull"`
}

// TransferInWaiting is the projection restoreProcessing replays at
// startup: a WAITING transfer joined with the seen_at timestamp of the
// transaction that triggered it, used to recompute the remaining
// contest-window duration after a crash.
type TransferInWaiting struct {
	ID                 uint64
	TokenID            uint32
	Amount             string
	SenderNetworkID    uint32
	SenderAddress      []byte
	RecipientNetworkID uint32
	RecipientAddress   []byte
	SeenAt             time.Time
}

// TransferDetails is the projection FindTransferDetailsByTransferID
// returns for cancel authorization: sender, token and amount of one
// transfer.
type TransferDetails struct {
	SenderAddress []byte
	TokenID       uint32
	Amount        string
}

// TransferWithHashes joins a transfer with the source/destination
// transaction hashes and the triggering transaction's seen_at, for the
// gateway's transfer and transfer_history operations. DestTxHash is nil
// until the transfer has an outbound transaction recorded.
type TransferWithHashes struct {
	TransferDao
	SeenAt       time.Time
	SourceTxHash []byte
	DestTxHash   []byte
}
