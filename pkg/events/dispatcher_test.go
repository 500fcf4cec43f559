package events

import (
	"context"
	"sync"
	"testing"

	"github.com/example/storefront/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	mu   sync.Mutex
	logs []*repository.AuditLog
}

func (s *recordingSink) CreateAuditLog(_ context.Context, log *repository.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.logs {
		out = append(out, l.Action)
	}
	return out
}

func TestDispatcherWritesAuditLogs(t *testing.T) {
	sink := &recordingSink{}
	d, err := NewDispatcher(sink, zap.NewNop())
	require.NoError(t, err)

	d.Publish(&UserRegistered{UserID: 1, Username: "alice"})
	d.Publish(&OrderPlaced{OrderID: 4, CustomerID: 1, Lines: 2, Total: decimal.RequireFromString("12.5")})
	d.Publish(&ReviewSaved{ReviewID: 2, ProductID: 9, CustomerID: 1, Rating: 8})
	require.NoError(t, d.Close())

	assert.Equal(t, []string{"user.registered", "order.placed", "review.saved"}, sink.actions())
	assert.Equal(t, "order:4", sink.logs[1].EntityID)
	assert.Equal(t, "12.50", sink.logs[1].Data["total"])
}

func TestDispatcherNotifiesCustomers(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	d, err := NewDispatcher(nil, zap.New(core))
	require.NoError(t, err)

	d.Publish(&ProductAdded{ProductID: 3, SellerID: 2, Name: "Mug", Price: decimal.NewFromInt(5)})
	d.Publish(&OrderPlaced{OrderID: 7, CustomerID: 5, Lines: 1, Total: decimal.NewFromInt(5)})
	require.NoError(t, d.Close())

	sent := recorded.FilterMessage("Sending notification").All()
	require.Len(t, sent, 1)
	assert.Equal(t, "Order #7 placed, total 5.00", sent[0].ContextMap()["message"])
}

func TestAuditLogShapes(t *testing.T) {
	log := (&OrderStatusChanged{OrderID: 3, CustomerID: 2, From: "Pending", To: "Processing"}).AuditLog()
	assert.Equal(t, "order.status_changed", log.Action)
	assert.Equal(t, "Processing", log.Data["to"])
	assert.Equal(t, uint(2), log.ActorID)

	Nop{}.Publish(&UserRegistered{UserID: 1})
}
