package service

import (
	"context"
	"time"

	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/pkg/mailer"
	"ai-codereview-be/pkg/events"
)

// RunEventSink receives run lifecycle events. Delivery is best effort.
type RunEventSink interface {
	Emit(ctx context.Context, event events.RunEvent)
}

// EventBus is the durable side, satisfied by the NATS publisher
type EventBus interface {
	Publish(ctx context.Context, event events.RunEvent) error
}

// LiveFeed is the websocket side, satisfied by the hub
type LiveFeed interface {
	Publish(ctx context.Context, event events.RunEvent)
}

type runNotifier struct {
	bus    EventBus
	feeds  []LiveFeed
	logger logger.ILogger
}

// NewRunNotifier fans events out to the bus and every live feed. bus may be nil.
func NewRunNotifier(bus EventBus, logger logger.ILogger, feeds ...LiveFeed) RunEventSink {
	n := &runNotifier{bus: bus, logger: logger}
	for _, f := range feeds {
		if f != nil {
			n.feeds = append(n.feeds, f)
		}
	}
	return n
}

func (n *runNotifier) Emit(ctx context.Context, event events.RunEvent) {
	for _, f := range n.feeds {
		f.Publish(ctx, event)
	}
	if n.bus == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := n.bus.Publish(pubCtx, event); err != nil {
		n.logger.Warn("RunEvents", "Failed to publish run event", map[string]interface{}{
			"run_id": event.RunID,
			"type":   event.Type,
			"error":  err.Error(),
		})
	}
}

// mailFeed mails a report to one address when a run finishes
type mailFeed struct {
	mailer mailer.IEmailService
	to     string
	logger logger.ILogger
}

func NewMailFeed(m mailer.IEmailService, to string, logger logger.ILogger) LiveFeed {
	return &mailFeed{mailer: m, to: to, logger: logger}
}

func (f *mailFeed) Publish(ctx context.Context, event events.RunEvent) {
	if !event.IsTerminal() {
		return
	}

	report := mailer.RunReport{
		RunID:        event.RunID,
		Status:       string(entity.RunStatusCompleted),
		ReviewCycles: intField(event.Data, "review_cycles"),
		OpenIssues:   intField(event.Data, "open_issues"),
		WrittenFiles: intField(event.Data, "written_files"),
	}
	if event.Type == events.RunFailed {
		report.Status = string(entity.RunStatusFailed)
		report.Error, _ = event.Data["error"].(string)
		report.Hint, _ = event.Data["hint"].(string)
	}

	// SMTP round trips must not hold up the consumer
	go func() {
		if err := f.mailer.SendRunReport(f.to, report); err != nil {
			f.logger.Warn("RunEvents", "Failed to mail run report", map[string]interface{}{
				"run_id": event.RunID,
				"error":  err.Error(),
			})
		}
	}()
}

func intField(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
