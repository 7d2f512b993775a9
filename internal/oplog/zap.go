// Package oplog writes rental operation logs through zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"go.uber.org/zap"
)

const statusOK = "ok"

// ZapLogger implements rental.OperationLogger.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger wraps logger; a nil logger discards everything.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger.Named("rental")}
}

// LogOperation logs successes at info, domain failures at warn and everything else at error.
func (zapLogger *ZapLogger) LogOperation(_ context.Context, entry rental.OperationLog) {
	fields := make([]zap.Field, 0, 8)
	fields = append(fields, zap.String("operation", entry.Operation), zap.String("status", entry.Status))
	fields = appendIfSet(fields, "renter_id", entry.RenterID.String())
	fields = appendIfSet(fields, "unit_id", entry.UnitID.String())
	fields = appendIfSet(fields, "model_id", entry.ModelID.String())
	fields = appendIfSet(fields, "booking_id", entry.BookingID.String())
	if entry.Amount != 0 {
		fields = append(fields, zap.Int64("amount_cents", entry.Amount.Int64()))
	}
	switch {
	case entry.Error == nil && entry.Status == statusOK:
		zapLogger.logger.Info("rental operation", fields...)
	case entry.Error != nil && rental.IsDomainError(entry.Error):
		zapLogger.logger.Warn("rental operation rejected", append(fields, zap.Error(entry.Error))...)
	default:
		zapLogger.logger.Error("rental operation failed", append(fields, zap.Error(entry.Error))...)
	}
}

func appendIfSet(fields []zap.Field, key string, value string) []zap.Field {
	if value == "" {
		return fields
	}
	return append(fields, zap.String(key, value))
}
