package usecase

import (
	"context"
	"time"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/infrastructure/metrics"
)

// OracleUseCase manages the one mutable piece of configuration: the oracle
// feed reference. Swaps take effect for transitions that start after the
// swap; a transition in flight keeps the price it already read.
type OracleUseCase struct {
	control    OracleControl
	txManager  TransactionManager
	outboxRepo OutboxRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

// NewOracleUseCase creates a new OracleUseCase.
func NewOracleUseCase(
	control OracleControl,
	txManager TransactionManager,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *OracleUseCase {
	return &OracleUseCase{
		control:    control,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		metrics:    metrics,
	}
}

// Replace swaps the oracle feed. The new feed must produce one valid
// probe reading before it is trusted; a feed that cannot is rejected and
// the current reference stays in place.
func (uc *OracleUseCase) Replace(ctx context.Context, spec domain.FeedSpec) (string, error) {
	label, err := uc.control.Replace(ctx, spec)
	if err != nil {
		return "", err
	}

	updatedBy := "system"
	if user, ok := domain.UserFromContext(ctx); ok {
		updatedBy = user.ID
	}

	now := time.Now().UTC()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return label, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   "oracle",
		AggregateType: domain.AggregateTypeOracle,
		EventType:     domain.EventTypeOracleUpdated,
		Payload: map[string]any{
			"feed":       label,
			"updated_by": updatedBy,
			"event_at":   now.Format(time.RFC3339Nano),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return label, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return label, err
	}

	if uc.metrics != nil {
		uc.metrics.OracleSwaps.Inc()
	}

	return label, nil
}

// Current returns the active feed's label.
func (uc *OracleUseCase) Current() string {
	return uc.control.Describe()
}
