package events

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// AuditSink persists audit records. *repository.MongoRepository satisfies it.
type AuditSink interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

const writeTimeout = 5 * time.Second

// AuditActor writes every event it receives to the sink.
type AuditActor struct {
	sink   AuditSink
	logger *zap.Logger
}

func (a *AuditActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case Event:
		entry := msg.AuditLog()
		if a.sink == nil {
			a.logger.Debug("Audit event", zap.String("action", entry.Action), zap.String("entity_id", entry.EntityID))
			return
		}

		writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := a.sink.CreateAuditLog(writeCtx, entry); err != nil {
			a.logger.Error("Failed to write audit log",
				zap.String("action", entry.Action),
				zap.String("entity_id", entry.EntityID),
				zap.Error(err))
		}

	case *actor.Started:
		a.logger.Info("Audit actor started")

	case *actor.Stopping:
		a.logger.Info("Audit actor stopping")
	}
}

// NotificationActor tells customers about their orders.
type NotificationActor struct {
	logger *zap.Logger
}

func (a *NotificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		a.logger.Info("Sending notification",
			zap.Uint("recipient", msg.CustomerID),
			zap.String("type", "email"),
			zap.String("message", fmt.Sprintf("Order #%d placed, total %s", msg.OrderID, msg.Total.StringFixed(2))))

	case *OrderStatusChanged:
		a.logger.Info("Sending notification",
			zap.Uint("recipient", msg.CustomerID),
			zap.String("type", "email"),
			zap.String("message", fmt.Sprintf("Order #%d is now %s", msg.OrderID, msg.To)))

	case *actor.Started:
		a.logger.Info("Notification actor started")
	}
}

// Dispatcher routes published events to the audit and notification actors.
type Dispatcher struct {
	system *actor.ActorSystem
	audit  *actor.PID
	notify *actor.PID
	logger *zap.Logger
}

var _ Publisher = (*Dispatcher)(nil)

func NewDispatcher(sink AuditSink, logger *zap.Logger) (*Dispatcher, error) {
	system := actor.NewActorSystem()

	auditProps := actor.PropsFromProducer(func() actor.Actor {
		return &AuditActor{sink: sink, logger: logger.Named("audit-actor")}
	})
	auditPid, err := system.Root.SpawnNamed(auditProps, "audit-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn audit actor: %w", err)
	}

	notifyProps := actor.PropsFromProducer(func() actor.Actor {
		return &NotificationActor{logger: logger.Named("notification-actor")}
	})
	notifyPid, err := system.Root.SpawnNamed(notifyProps, "notification-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification actor: %w", err)
	}

	logger.Info("Event actors started",
		zap.String("audit_actor", auditPid.Id),
		zap.String("notification_actor", notifyPid.Id))

	return &Dispatcher{system: system, audit: auditPid, notify: notifyPid, logger: logger}, nil
}

func (d *Dispatcher) Publish(event Event) {
	d.logger.Debug("Publishing event", zap.String("event", describe(event)))
	d.system.Root.Send(d.audit, event)

	switch event.(type) {
	case *OrderPlaced, *OrderStatusChanged:
		d.system.Root.Send(d.notify, event)
	}
}

// Close stops the actors after their mailboxes drain.
func (d *Dispatcher) Close() error {
	if err := d.system.Root.PoisonFuture(d.audit).Wait(); err != nil {
		return fmt.Errorf("failed to stop audit actor: %w", err)
	}
	if err := d.system.Root.PoisonFuture(d.notify).Wait(); err != nil {
		return fmt.Errorf("failed to stop notification actor: %w", err)
	}
	return nil
}
