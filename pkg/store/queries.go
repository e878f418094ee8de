package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/uptrace/bun"

	"github.com/bridgecore/coordinator/pkg/bridge"
)

// ErrTransferNotFound is returned when finalize_transfer has no matching
// CONFIRMING transfer to close out.
var ErrTransferNotFound = errors.New("store: no matching confirming transfer")

func amountToString(amount *uint256.Int) string {
	return amount.Dec()
}

func amountFromString(s string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("store: invalid stored amount %q: %w", s, err)
	}
	return amount, nil
}

// AllTokens returns every registered token's header metadata.
func (s *ReadSession) AllTokens(ctx context.Context) ([]TokenDao, error) {
	return allTokens(ctx, s.tx)
}

// AllTokens returns every registered token's header metadata.
func (s *WriteSession) AllTokens(ctx context.Context) ([]TokenDao, error) {
	return allTokens(ctx, s.tx)
}

func allTokens(ctx context.Context, db bun.IDB) ([]TokenDao, error) {
	var tokens []TokenDao
	if err := db.NewSelect().Model(&tokens).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// AllNetworkTokens returns the per-network metadata of every registered
// token.
func (s *ReadSession) AllNetworkTokens(ctx context.Context) ([]NetworkTokenDao, error) {
	return allNetworkTokens(ctx, s.tx)
}

// AllNetworkTokens returns the per-network metadata of every registered
// token.
func (s *WriteSession) AllNetworkTokens(ctx context.Context) ([]NetworkTokenDao, error) {
	return allNetworkTokens(ctx, s.tx)
}

func allNetworkTokens(ctx context.Context, db bun.IDB) ([]NetworkTokenDao, error) {
	var rows []NetworkTokenDao
	if err := db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list network tokens: %w", err)
	}
	return rows, nil
}

// FindTransactionByHash looks up a previously observed transaction.
func (s *ReadSession) FindTransactionByHash(ctx context.Context, hash bridge.TxHash) (*TransactionDao, error) {
	return findTransactionByHash(ctx, s.tx, hash)
}

// FindTransactionByHash looks up a previously observed transaction.
func (s *WriteSession) FindTransactionByHash(ctx context.Context, hash bridge.TxHash) (*TransactionDao, error) {
	return findTransactionByHash(ctx, s.tx, hash)
}

func findTransactionByHash(ctx context.Context, db bun.IDB, hash bridge.TxHash) (*TransactionDao, error) {
	tx := new(TransactionDao)
	err := db.NewSelect().
		Model(tx).
		Where("network_id = ?", uint32(hash.NetworkID)).
		Where("tx_hash = ?", hash.Data).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return tx, nil
}

// LastSeenNetworkBlock returns the last block reported processed for
// networkID, or ok=false if the network has never reported one.
func (s *ReadSession) LastSeenNetworkBlock(ctx context.Context, networkID bridge.NetworkID) (block uint64, ok bool, err error) {
	return lastSeenNetworkBlock(ctx, s.tx, networkID)
}

// LastSeenNetworkBlock returns the last block reported processed for
// networkID, or ok=false if the network has never reported one.
func (s *WriteSession) LastSeenNetworkBlock(ctx context.Context, networkID bridge.NetworkID) (block uint64, ok bool, err error) {
	return lastSeenNetworkBlock(ctx, s.tx, networkID)
}

func lastSeenNetworkBlock(ctx context.Context, db bun.IDB, networkID bridge.NetworkID) (uint64, bool, error) {
	row := new(NetworkBlockDao)
	err := db.NewSelect().
		Model(row).
		Where("network_id = ?", uint32(networkID)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read last seen block: %w", err)
	}
	return row.LastSeenBlock, true, nil
}

// GetTransactionsInWaiting returns every transfer still in WAITING
// status joined with its triggering transaction's seen_at, for crash
// recovery.
func (s *ReadSession) GetTransactionsInWaiting(ctx context.Context) ([]TransferInWaiting, error) {
	return getTransactionsInWaiting(ctx, s.tx)
}

// GetTransactionsInWaiting returns every transfer still in WAITING
// status joined with its triggering transaction's seen_at, for crash
// recovery.
func (s *WriteSession) GetTransactionsInWaiting(ctx context.Context) ([]TransferInWaiting, error) {
	return getTransactionsInWaiting(ctx, s.tx)
}

func getTransactionsInWaiting(ctx context.Context, db bun.IDB) ([]TransferInWaiting, error) {
	var rows []TransferInWaiting
	err := db.NewSelect().
		Model((*TransferDao)(nil)).
		ColumnExpr("tr.id, tr.token_id, tr.amount, tr.sender_network_id, tr.sender_address, tr.recipient_network_id, tr.recipient_address, txn.seen_at AS seen_at").
		Join("JOIN transactions AS txn ON txn.id = tr.triggering_tx").
		Where("tr.status = ?", string(bridge.TransferStatusWaiting)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting transfers: %w", err)
	}
	return rows, nil
}

const transferWithHashesColumns = "tr.*, txn.seen_at AS seen_at, txn.tx_hash AS source_tx_hash, outtx.tx_hash AS dest_tx_hash"

func transferWithHashesQuery(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().
		Model((*TransferDao)(nil)).
		ColumnExpr(transferWithHashesColumns).
		Join("JOIN transactions AS txn ON txn.id = tr.triggering_tx").
		Join("LEFT JOIN transactions AS outtx ON outtx.id = tr.outbound_tx")
}

// FindTransfersByHash returns every transfer whose triggering or outbound
// transaction matches hash, for the gateway's transfer operation.
func (s *ReadSession) FindTransfersByHash(ctx context.Context, hash bridge.TxHash) ([]TransferWithHashes, error) {
	return findTransfersByHash(ctx, s.tx, hash)
}

func findTransfersByHash(ctx context.Context, db bun.IDB, hash bridge.TxHash) ([]TransferWithHashes, error) {
	var rows []TransferWithHashes
	err := transferWithHashesQuery(db).
		Where("(txn.network_id = ? AND txn.tx_hash = ?) OR (outtx.network_id = ? AND outtx.tx_hash = ?)",
			uint32(hash.NetworkID), hash.Data, uint32(hash.NetworkID), hash.Data).
		OrderExpr("tr.id DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to find transfers by hash: %w", err)
	}
	return rows, nil
}

// FindTransfersBySenderPaged returns a page of transfers initiated by
// sender, most recent first, joined with their triggering/outbound
// transaction hashes.
func (s *ReadSession) FindTransfersBySenderPaged(ctx context.Context, sender bridge.Address, limit, offset uint64) ([]TransferWithHashes, error) {
	var rows []TransferWithHashes
	err := transferWithHashesQuery(s.tx).
		Where("tr.sender_network_id = ?", uint32(sender.NetworkID)).
		Where("tr.sender_address = ?", sender.Data).
		OrderExpr("tr.id DESC").
		Limit(int(limit)).
		Offset(int(offset)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers by sender: %w", err)
	}
	return rows, nil
}

// CountTransfersForSender returns the total number of transfers
// initiated by sender, for transfer_history pagination.
func (s *ReadSession) CountTransfersForSender(ctx context.Context, sender bridge.Address) (int64, error) {
	count, err := s.tx.NewSelect().
		Model((*TransferDao)(nil)).
		Where("sender_network_id = ?", uint32(sender.NetworkID)).
		Where("sender_address = ?", sender.Data).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count transfers by sender: %w", err)
	}
	return int64(count), nil
}

// FindTransferDetailsByTransferID returns the sender, token and amount of
// transferID, for verifying a cancel request's authorization.
func (s *ReadSession) FindTransferDetailsByTransferID(ctx context.Context, transferID uint64) (*TransferDetails, error) {
	return findTransferDetailsByTransferID(ctx, s.tx, transferID)
}

// FindTransferDetailsByTransferID returns the sender, token and amount of
// transferID, for verifying a cancel request's authorization.
func (s *WriteSession) FindTransferDetailsByTransferID(ctx context.Context, transferID uint64) (*TransferDetails, error) {
	return findTransferDetailsByTransferID(ctx, s.tx, transferID)
}

func findTransferDetailsByTransferID(ctx context.Context, db bun.IDB, transferID uint64) (*TransferDetails, error) {
	details := new(TransferDetails)
	err := db.NewSelect().
		Model((*TransferDao)(nil)).
		ColumnExpr("sender_address, token_id, amount").
		Where("id = ?", transferID).
		Scan(ctx, details)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transfer details: %w", err)
	}
	return details, nil
}

// InsertToken inserts new token header metadata and returns its id.
func (s *WriteSession) InsertToken(ctx context.Context, shortName, longName string) (bridge.TokenID, error) {
	dao := &TokenDao{ShortName: shortName, LongName: longName}
	if _, err := s.tx.NewInsert().Model(dao).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert token: %w", err)
	}
	return bridge.TokenID(dao.ID), nil
}

// InsertNetworkToken inserts the per-network metadata for a token.
func (s *WriteSession) InsertNetworkToken(ctx context.Context, networkID bridge.NetworkID, tokenID bridge.TokenID, contract bridge.Address, decimals uint8) error {
	dao := &NetworkTokenDao{
		NetworkID:   uint32(networkID),
		TokenID:     uint32(tokenID),
		ContractKey: contract.Data,
		Decimals:    decimals,
	}
	if _, err := s.tx.NewInsert().Model(dao).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert network token: %w", err)
	}
	return nil
}

// InsertTransaction records a newly observed on-chain transaction and
// returns its id.
func (s *WriteSession) InsertTransaction(ctx context.Context, hash bridge.TxHash, blockNumber uint64, seenAt time.Time, sender bridge.Address) (uint64, error) {
	dao := &TransactionDao{
		NetworkID:   uint32(hash.NetworkID),
		TxHash:      hash.Data,
		BlockNumber: blockNumber,
		SeenAt:      seenAt,
		Sender:      sender.Data,
	}
	if _, err := s.tx.NewInsert().Model(dao).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return dao.ID, nil
}

// InsertTransfer records a new transfer in WAITING status and returns its
// id.
func (s *WriteSession) InsertTransfer(ctx context.Context, triggeringTx uint64, tokenID bridge.TokenID, amount *uint256.Int, sender, recipient bridge.Address) (uint64, error) {
	dao := &TransferDao{
		TriggeringTx:       triggeringTx,
		TokenID:            uint32(tokenID),
		Amount:             amountToString(amount),
		Status:             string(bridge.TransferStatusWaiting),
		SenderNetworkID:    uint32(sender.NetworkID),
		SenderAddress:      sender.Data,
		RecipientNetworkID: uint32(recipient.NetworkID),
		RecipientAddress:   recipient.Data,
	}
	if _, err := s.tx.NewInsert().Model(dao).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert transfer: %w", err)
	}
	return dao.ID, nil
}

// UpdateTransferStatus sets the status of transferID.
func (s *WriteSession) UpdateTransferStatus(ctx context.Context, transferID uint64, status bridge.TransferStatus) error {
	_, err := s.tx.NewUpdate().
		Model((*TransferDao)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", transferID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update transfer status: %w", err)
	}
	return nil
}

// UpdateSeenNetworkBlock upserts the last seen block for networkID.
func (s *WriteSession) UpdateSeenNetworkBlock(ctx context.Context, networkID bridge.NetworkID, block uint64) error {
	dao := &NetworkBlockDao{NetworkID: uint32(networkID), LastSeenBlock: block}
	_, err := s.tx.NewInsert().
		Model(dao).
		On("CONFLICT (network_id) DO UPDATE").
		Set("last_seen_block = EXCLUDED.last_seen_block").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update last seen block: %w", err)
	}
	return nil
}

// IncrementNonce atomically increments and returns the signature nonce
// for networkID; the first call for a network returns 0.
func (s *WriteSession) IncrementNonce(ctx context.Context, networkID bridge.NetworkID) (uint64, error) {
	dao := &NetworkNonceDao{NetworkID: uint32(networkID), Nonce: 0}
	_, err := s.tx.NewInsert().
		Model(dao).
		On("CONFLICT (network_id) DO UPDATE").
		Set("nonce = network_nonces.nonce + 1").
		Returning("nonce").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to increment nonce: %w", err)
	}
	return dao.Nonce, nil
}

// FinalizeTransfer matches the oldest CONFIRMING transfer with the exact
// (sender, recipient, token, amount) quadruple a destination connector's
// bridge_out event reports, and marks it FINISHED with the outbound
// transaction id. Same-sender/amount ambiguity resolves to the oldest
// match by id.
func (s *WriteSession) FinalizeTransfer(ctx context.Context, from, to bridge.Address, amount *uint256.Int, token bridge.TokenID, outboundTxID uint64) error {
	match := new(TransferDao)
	err := s.tx.NewSelect().
		Model(match).
		Column("id").
		Where("sender_address = ?", from.Data).
		Where("sender_network_id = ?", uint32(from.NetworkID)).
		Where("recipient_address = ?", to.Data).
		Where("recipient_network_id = ?", uint32(to.NetworkID)).
		Where("amount = ?", amountToString(amount)).
		Where("token_id = ?", uint32(token)).
		Where("status = ?", string(bridge.TransferStatusConfirming)).
		OrderExpr("id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTransferNotFound
		}
		return fmt.Errorf("failed to find confirming transfer: %w", err)
	}

	_, err = s.tx.NewUpdate().
		Model((*TransferDao)(nil)).
		Set("status = ?", string(bridge.TransferStatusFinished)).
		Set("outbound_tx = ?", outboundTxID).
		Where("id = ?", match.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finalize transfer: %w", err)
	}
	return nil
}
