package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
)

type recordingHandler struct {
	types    []string
	received []shared.DomainEvent
	err      error
}

func (h *recordingHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	h.received = append(h.received, ev)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func newConfirmedEvent(t *testing.T) shared.DomainEvent {
	t.Helper()
	tx, err := ledger.NewTransaction(ledger.TransactionTypeCustomerInvoice, "1", time.Now())
	require.NoError(t, err)
	return ledger.NewTransactionConfirmedEvent(tx)
}

func TestInMemoryEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to a typed subscriber", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{ledger.EventTypeTransactionConfirmed}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, newConfirmedEvent(t)))
		assert.Len(t, handler.received, 1)
	})

	t.Run("untyped subscriber receives every event", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{}
		bus.Subscribe(handler)

		tx, err := ledger.NewTransaction(ledger.TransactionTypeSupplierInvoice, "2", time.Now())
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx,
			newConfirmedEvent(t),
			ledger.NewTransactionCreatedEvent(tx),
		))
		assert.Len(t, handler.received, 2)
	})

	t.Run("events of other types are not delivered", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{ledger.EventTypeTransactionFinalised}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, newConfirmedEvent(t)))
		assert.Empty(t, handler.received)
	})

	t.Run("failing handler does not block the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{err: errors.New("handler broke")}
		healthy := &recordingHandler{}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, newConfirmedEvent(t)))
		assert.Len(t, failing.received, 1)
		assert.Len(t, healthy.received, 1)
	})

	t.Run("unsubscribed handler stops receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{}
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		require.NoError(t, bus.Publish(ctx, newConfirmedEvent(t)))
		assert.Empty(t, handler.received)
	})
}

func TestAuditLogHandler(t *testing.T) {
	handler := NewAuditLogHandler(zap.NewNop())
	assert.Empty(t, handler.EventTypes())
	assert.NoError(t, handler.Handle(context.Background(), newConfirmedEvent(t)))
}
