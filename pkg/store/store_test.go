package store_test

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/bridgecore/coordinator/pkg/bridge"
	"github.com/bridgecore/coordinator/pkg/store"
)

func TestIncrementNonceSequence(t *testing.T) {
	ctx, s := setupStore(t)

	write, err := s.WriteTx(ctx)
	require.NoError(t, err)
	defer write.Discard()

	for _, want := range []uint64{0, 1, 2, 3} {
		got, err := write.IncrementNonce(ctx, bridge.NetworkID(0))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	// A second network's nonce sequence starts independently at 0.
	got, err := write.IncrementNonce(ctx, bridge.NetworkID(1))
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)

	require.NoError(t, write.Commit())
}

func TestFinalizeTransferMatchesOldestConfirming(t *testing.T) {
	ctx, s := setupStore(t)

	write, err := s.WriteTx(ctx)
	require.NoError(t, err)
	defer write.Discard()

	tokenID, err := write.InsertToken(ctx, "TEST", "Test Token")
	require.NoError(t, err)

	sender := bridge.NewAddress(0, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8})
	recipient := bridge.NewAddress(0, []byte{0, 1, 2, 3, 4, 5, 6, 7, 9})
	amount := uint256.NewInt(1_000)

	triggerHash := bridge.NewTxHash(0, []byte{1, 2, 3})
	triggeringTx, err := write.InsertTransaction(ctx, triggerHash, 10_000, time.Now(), sender)
	require.NoError(t, err)

	firstID, err := write.InsertTransfer(ctx, triggeringTx, tokenID, amount, sender, recipient)
	require.NoError(t, err)
	secondID, err := write.InsertTransfer(ctx, triggeringTx, tokenID, amount, sender, recipient)
	require.NoError(t, err)
	require.Less(t, firstID, secondID)

	require.NoError(t, write.UpdateTransferStatus(ctx, firstID, bridge.TransferStatusConfirming))
	require.NoError(t, write.UpdateTransferStatus(ctx, secondID, bridge.TransferStatusConfirming))

	outboundHash := bridge.NewTxHash(0, []byte{9, 9, 9})
	outboundTxID, err := write.InsertTransaction(ctx, outboundHash, 20_000, time.Now(), recipient)
	require.NoError(t, err)

	require.NoError(t, write.FinalizeTransfer(ctx, sender, recipient, amount, tokenID, outboundTxID))

	waiting, err := write.GetTransactionsInWaiting(ctx)
	require.NoError(t, err)
	require.Empty(t, waiting)

	require.NoError(t, write.Commit())

	read, err := s.ReadTx(ctx)
	require.NoError(t, err)
	defer read.Discard()

	count, err := read.CountTransfersForSender(ctx, sender)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// Most recent first: the older transfer is the one finalized.
	transfers, err := read.FindTransfersBySenderPaged(ctx, sender, 10, 0)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	require.Equal(t, secondID, transfers[0].ID)
	require.Equal(t, string(bridge.TransferStatusConfirming), transfers[0].Status)
	require.Equal(t, firstID, transfers[1].ID)
	require.Equal(t, string(bridge.TransferStatusFinished), transfers[1].Status)
}

func TestFinalizeTransferNoMatchReturnsNotFound(t *testing.T) {
	ctx, s := setupStore(t)

	write, err := s.WriteTx(ctx)
	require.NoError(t, err)
	defer write.Discard()

	sender := bridge.NewAddress(0, []byte{1})
	recipient := bridge.NewAddress(0, []byte{2})

	err = write.FinalizeTransfer(ctx, sender, recipient, uint256.NewInt(1), 0, 0)
	require.ErrorIs(t, err, store.ErrTransferNotFound)
}

func TestLastSeenNetworkBlockUpsert(t *testing.T) {
	ctx, s := setupStore(t)

	write, err := s.WriteTx(ctx)
	require.NoError(t, err)
	defer write.Discard()

	_, ok, err := write.LastSeenNetworkBlock(ctx, bridge.NetworkID(5))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, write.UpdateSeenNetworkBlock(ctx, bridge.NetworkID(5), 100))
	require.NoError(t, write.UpdateSeenNetworkBlock(ctx, bridge.NetworkID(5), 200))

	block, ok, err := write.LastSeenNetworkBlock(ctx, bridge.NetworkID(5))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(200), block)
}
