package coordinator

import "errors"

var (
	// ErrUnknownTransfer is returned by CancelTransfer when transferID
	// is not currently awaiting its contest window, either because it
	// was never submitted or was already cancelled.
	ErrUnknownTransfer = errors.New("coordinator: unknown transfer id, or it already sent/finished")
	// ErrTooLateToCancel is returned by CancelTransfer when the contest
	// window has already fired and processTransfer has moved on.
	ErrTooLateToCancel = errors.New("coordinator: too late to cancel transfer")
	// ErrUnknownDestinationConnector is returned when a transfer names a
	// destination network with no registered connector.
	ErrUnknownDestinationConnector = errors.New("coordinator: unknown destination network connector")
	// ErrDuplicateTransaction is returned when a connector reports a
	// transaction hash already recorded against a different event.
	ErrDuplicateTransaction = errors.New("coordinator: transaction already recorded")
)
