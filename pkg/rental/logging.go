package rental

import "context"

// OperationLogger records domain-level events emitted by rental operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing rental operation.
type OperationLog struct {
	Operation string
	RenterID  RenterID
	UnitID    UnitID
	ModelID   ModelID
	BookingID BookingID
	Amount    AmountCents
	Status    string
	Error     error
}

func emitOperation(ctx context.Context, logger OperationLogger, entry OperationLog) {
	if logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	logger.LogOperation(ctx, entry)
}
