package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-codereview-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one run event. Returning stop=true ends the watch.
type EventHandler func(ctx context.Context, event events.RunEvent) (stop bool, err error)

// Subscriber replays and follows the events of a run.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Watch delivers every event of runID from the start of the stream until the
// handler asks to stop, the handler fails, or ctx ends.
func (s *Subscriber) Watch(ctx context.Context, runID string, handler EventHandler) error {
	consumer, err := s.js.OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{RunSubjects(runID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var event events.RunEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			finish(fmt.Errorf("decode event on %s: %w", msg.Subject(), err))
			return
		}
		stop, err := handler(ctx, event)
		if err != nil {
			finish(err)
			return
		}
		if stop {
			finish(nil)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer consumeCtx.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
