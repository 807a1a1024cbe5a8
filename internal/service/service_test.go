package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-codereview-be/internal/apperror"
	"ai-codereview-be/internal/dto"
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/orchestrator"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/pkg/mailer"
	"ai-codereview-be/internal/pkg/serverutils"
	"ai-codereview-be/internal/repository/memory"
	"ai-codereview-be/internal/route"
	"ai-codereview-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.RunEvent
}

func (s *recordingSink) Emit(ctx context.Context, event events.RunEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type capturingPublisher struct {
	payloads [][]byte
	err      error
}

func (p *capturingPublisher) Publish(ctx context.Context, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func keyedRoutes() route.Routes {
	mk := func(name string) route.Route {
		return route.Route{Name: name, Provider: "openrouter", Model: "m/" + name, APIKey: "k"}
	}
	return route.Routes{
		OpenAIReviewer:       mk(route.RoleOpenAIReviewer),
		GeminiReviewer:       mk(route.RoleGeminiReviewer),
		AnthropicAdjudicator: mk(route.RoleAnthropicAdjudicator),
		Writer:               mk(route.RoleWriter),
	}
}

func TestSubmitQueuesRun(t *testing.T) {
	repo := memory.NewRunRepository(nil)
	pub := &capturingPublisher{}
	sink := &recordingSink{}
	svc := NewRunService(repo, pub, keyedRoutes(), sink, logger.NewNopLogger())

	res, err := svc.Submit(context.Background(), &dto.SubmitRunRequest{Request: "add docstrings", TargetFile: "x.py"})
	require.NoError(t, err)
	assert.Equal(t, "queued", res.Status)

	require.Len(t, pub.payloads, 1)
	var msg dto.RunQueuedMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, res.Id, msg.RunId)

	run, err := repo.FindById(context.Background(), res.Id)
	require.NoError(t, err)
	assert.Equal(t, "add docstrings", run.Initial.Request)
	assert.Equal(t, []string{events.RunQueued}, sink.types())
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	pub := &capturingPublisher{}
	svc := NewRunService(memory.NewRunRepository(nil), pub, keyedRoutes(), &recordingSink{}, logger.NewNopLogger())

	tests := []struct {
		name string
		req  dto.SubmitRunRequest
	}{
		{"no request", dto.SubmitRunRequest{TargetFile: "x.py"}},
		{"no target", dto.SubmitRunRequest{Request: "r"}},
		{"blank target in list", dto.SubmitRunRequest{Request: "r", TargetFiles: []string{""}}},
		{"budget too large", dto.SubmitRunRequest{Request: "r", TargetFile: "x.py", MaxReviewCycles: 99}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), &tt.req)
			var ve *serverutils.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
	assert.Empty(t, pub.payloads)
}

func TestSubmitChecksCredentialsUpFront(t *testing.T) {
	routes := keyedRoutes()
	routes.AnthropicAdjudicator.APIKey = ""
	pub := &capturingPublisher{}
	svc := NewRunService(memory.NewRunRepository(nil), pub, routes, &recordingSink{}, logger.NewNopLogger())

	_, err := svc.Submit(context.Background(), &dto.SubmitRunRequest{Request: "r", TargetFile: "x.py"})
	assert.ErrorIs(t, err, apperror.ErrMissingCredential)
	assert.Empty(t, pub.payloads)
}

func TestShowUnknownRunIsNotFound(t *testing.T) {
	svc := NewRunService(memory.NewRunRepository(nil), &capturingPublisher{}, keyedRoutes(), &recordingSink{}, logger.NewNopLogger())
	_, err := svc.Show(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetAllFiltersByStatus(t *testing.T) {
	svc := NewRunService(memory.NewRunRepository(nil), &capturingPublisher{}, keyedRoutes(), &recordingSink{}, logger.NewNopLogger())
	ctx := context.Background()
	for _, target := range []string{"a.py", "b.py"} {
		_, err := svc.Submit(ctx, &dto.SubmitRunRequest{Request: "r", TargetFile: target})
		require.NoError(t, err)
	}

	queued, err := svc.GetAll(ctx, &dto.RunListRequest{Status: "queued"})
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	failed, err := svc.GetAll(ctx, &dto.RunListRequest{Status: "failed"})
	require.NoError(t, err)
	assert.Empty(t, failed)

	_, err = svc.GetAll(ctx, &dto.RunListRequest{Status: "exploded"})
	var ve *serverutils.ValidationError
	assert.ErrorAs(t, err, &ve)
}

// scriptedGraph walks the callbacks the way the orchestrator does
type scriptedGraph struct {
	final entity.SessionState
	err   error
	seen  entity.SessionState
}

func (g *scriptedGraph) Run(ctx context.Context, initial entity.SessionState, cb *orchestrator.Callbacks) (entity.SessionState, error) {
	g.seen = initial
	cb.OnStageStart(orchestrator.StageWriter, initial)
	cb.OnStageComplete(orchestrator.StageWriter, initial)
	return g.final, g.err
}

func queuedRun(t *testing.T, repo *memory.RunRepository) *entity.Run {
	t.Helper()
	run := &entity.Run{
		Id:        uuid.New(),
		Status:    entity.RunStatusQueued,
		Initial:   entity.SessionState{Request: "r", TargetFile: "x.py"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Save(context.Background(), run))
	return run
}

func queuedMessage(t *testing.T, id uuid.UUID) *message.Message {
	t.Helper()
	payload, err := json.Marshal(dto.RunQueuedMessage{RunId: id})
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload)
}

func newConsumer(repo *memory.RunRepository, graph RunGraph, sink RunEventSink) *consumerService {
	return NewConsumerService(nil, "runs", repo, graph, sink, time.Minute, logger.NewNopLogger()).(*consumerService)
}

func TestConsumerCompletesRun(t *testing.T) {
	repo := memory.NewRunRepository(nil)
	run := queuedRun(t, repo)
	graph := &scriptedGraph{final: entity.SessionState{Request: "r", ReviewSatisfied: true, ReviewCycles: 1}}
	sink := &recordingSink{}

	msg := queuedMessage(t, run.Id)
	newConsumer(repo, graph, sink).processMessage(context.Background(), msg)

	select {
	case <-msg.Acked():
	default:
		t.Fatal("message was not acked")
	}
	assert.Equal(t, "r", graph.seen.Request)

	got, err := repo.FindById(context.Background(), run.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
	assert.True(t, got.State.ReviewSatisfied)
	assert.Equal(t, []string{events.RunStarted, events.StageCompleted, events.RunCompleted}, sink.types())
}

func TestConsumerRecordsFailureWithHint(t *testing.T) {
	repo := memory.NewRunRepository(nil)
	run := queuedRun(t, repo)
	graph := &scriptedGraph{err: &apperror.CycleBudgetExceededError{Cycles: 2, MaxCycles: 2, OpenIssues: 1}}
	sink := &recordingSink{}

	newConsumer(repo, graph, sink).processMessage(context.Background(), queuedMessage(t, run.Id))

	got, err := repo.FindById(context.Background(), run.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "review not satisfied")
	assert.Contains(t, got.Hint, "MAX_REVIEW_CYCLES")
	assert.Equal(t, events.RunFailed, sink.types()[len(sink.types())-1])
}

func TestConsumerSkipsRunsThatAreNotQueued(t *testing.T) {
	repo := memory.NewRunRepository(nil)
	run := queuedRun(t, repo)
	run.Status = entity.RunStatusCompleted
	require.NoError(t, repo.Save(context.Background(), run))
	graph := &scriptedGraph{}
	sink := &recordingSink{}

	msg := queuedMessage(t, run.Id)
	newConsumer(repo, graph, sink).processMessage(context.Background(), msg)

	<-msg.Acked()
	assert.Empty(t, sink.types())
	assert.Empty(t, graph.seen.Request)
}

func TestConsumerAcksMalformedMessage(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	newConsumer(memory.NewRunRepository(nil), &scriptedGraph{}, &recordingSink{}).processMessage(context.Background(), msg)
	<-msg.Acked()
}

func TestSubmitThenConsumeOverGoChannel(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	repo := memory.NewRunRepository(nil)
	sink := &recordingSink{}
	graph := &scriptedGraph{final: entity.SessionState{ReviewSatisfied: true}}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	consumer := NewConsumerService(pubSub, "runs", repo, graph, sink, time.Minute, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	svc := NewRunService(repo, NewPublisherService("runs", pubSub), keyedRoutes(), sink, logger.NewNopLogger())
	res, err := svc.Submit(ctx, &dto.SubmitRunRequest{Request: "r", TargetFiles: []string{"a.py", "b.py"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		run, err := repo.FindById(ctx, res.Id)
		return err == nil && run != nil && run.Status == entity.RunStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

type failingBus struct{ calls int }

func (b *failingBus) Publish(ctx context.Context, event events.RunEvent) error {
	b.calls++
	return errors.New("nats down")
}

type feedStub struct{ got []events.RunEvent }

func (f *feedStub) Publish(ctx context.Context, event events.RunEvent) {
	f.got = append(f.got, event)
}

func TestRunNotifierKeepsFeedingWhenBusFails(t *testing.T) {
	bus := &failingBus{}
	feed := &feedStub{}
	n := NewRunNotifier(bus, logger.NewNopLogger(), feed)

	n.Emit(context.Background(), events.NewRunEvent(events.RunStarted, "r", "", nil))

	assert.Equal(t, 1, bus.calls)
	assert.Len(t, feed.got, 1)

	// no sinks at all is fine too
	NewRunNotifier(nil, logger.NewNopLogger(), nil).Emit(context.Background(), events.NewRunEvent(events.RunStarted, "r", "", nil))
}

type mailerStub struct {
	reports chan mailer.RunReport
}

func (m *mailerStub) SendRunReport(to string, report mailer.RunReport) error {
	m.reports <- report
	return nil
}

func TestMailFeedOnlyMailsTerminalEvents(t *testing.T) {
	m := &mailerStub{reports: make(chan mailer.RunReport, 4)}
	feed := NewMailFeed(m, "dev@example.com", logger.NewNopLogger())

	feed.Publish(context.Background(), events.NewRunEvent(events.StageCompleted, "r", "writer", nil))
	feed.Publish(context.Background(), events.NewRunEvent(events.RunFailed, "r", "", map[string]interface{}{
		"error": "budget exceeded",
		"hint":  "raise MAX_REVIEW_CYCLES",
	}))

	select {
	case report := <-m.reports:
		assert.Equal(t, "r", report.RunID)
		assert.Equal(t, string(entity.RunStatusFailed), report.Status)
		assert.Equal(t, "budget exceeded", report.Error)
		assert.Equal(t, "raise MAX_REVIEW_CYCLES", report.Hint)
	case <-time.After(2 * time.Second):
		t.Fatal("no report mailed")
	}
	assert.Empty(t, m.reports)
}
