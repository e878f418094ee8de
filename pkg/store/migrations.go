package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// models lists every DAO whose table CreateTables creates, in dependency
// order (tokens before network_tokens).
func models() []any {
	return []any{
		(*TokenDao)(nil),
		(*NetworkTokenDao)(nil),
		(*TransactionDao)(nil),
		(*TransferDao)(nil),
		(*NetworkBlockDao)(nil),
		(*NetworkNonceDao)(nil),
	}
}

// CreateTables creates every bridge table if it does not already exist,
// then the indexes query patterns in pkg/store/queries.go rely on.
// Idempotent: safe to call on every startup.
func CreateTables(ctx context.Context, db bun.IDB) error {
	for _, model := range models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
		unique  bool
	}{
		{(*TransferDao)(nil), "idx_token_transfers_status", []string{"status"}, false},
		{(*TransferDao)(nil), "idx_token_transfers_sender", []string{"sender_network_id", "sender_address"}, false},
		{(*TransactionDao)(nil), "idx_transactions_hash", []string{"network_id", "tx_hash"}, true},
	}
	for _, idx := range indexes {
		query := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists()
		if idx.unique {
			query = query.Unique()
		}
		_, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// DropTables drops every bridge table, in reverse dependency order. Used
// only by tests.
func DropTables(ctx context.Context, db bun.IDB) error {
	models := models()
	for i := len(models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(models[i]).IfExists().Cascade().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", models[i], err)
		}
	}
	return nil
}
