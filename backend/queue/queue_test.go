package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingProducer struct {
	bodies [][]byte
	err    error
}

func (p *recordingProducer) Publish(body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

type stubConsumer struct {
	started chan struct{}
}

func (c *stubConsumer) Consume(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	return nil
}

func TestActivityPublisher_RoundRobin(t *testing.T) {
	first, second := &recordingProducer{}, &recordingProducer{}
	q := &Queue{Producers: []Producer{first, second}}
	p := NewActivityPublisher(q, zap.NewNop())
	at := time.Date(2025, 4, 22, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	p.PublishActivity(context.Background(), "challenge", ActionCreated, "c1")
	p.PublishActivity(context.Background(), "challenge", ActionUpdated, "c1")
	p.PublishActivity(context.Background(), "challenge", ActionDeleted, "c1")

	require.Len(t, first.bodies, 2)
	require.Len(t, second.bodies, 1)

	var msg ActivityMessage
	require.NoError(t, json.Unmarshal(second.bodies[0], &msg))
	assert.Equal(t, "challenge", msg.Entity)
	assert.Equal(t, ActionUpdated, msg.Action)
	assert.Equal(t, "c1", msg.EntityID)
	assert.Equal(t, at, msg.At)
	assert.NotEmpty(t, msg.ID)
}

func TestActivityPublisher_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	q := &Queue{Producers: []Producer{&recordingProducer{err: errors.New("channel closed")}}}
	p := NewActivityPublisher(q, zap.New(core))

	p.PublishActivity(context.Background(), "user", ActionCreated, "u1")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to publish activity", logs.All()[0].Message)
}

func TestActivityPublisher_NoProducers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewActivityPublisher(&Queue{}, zap.New(core))

	p.PublishActivity(context.Background(), "tip", ActionDeleted, "t1")

	assert.Equal(t, 1, logs.FilterMessage("failed to publish activity").Len())
}

func TestActivityConsumer_Handle(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := &ActivityConsumer{log: zap.New(core)}

	body, err := json.Marshal(ActivityMessage{ID: "1", Entity: "event", Action: ActionCreated, EntityID: "e1"})
	require.NoError(t, err)

	require.NoError(t, c.handle(body))
	assert.Equal(t, 1, logs.FilterMessage("activity").Len())

	assert.Error(t, c.handle([]byte("{not json")))
	assert.Error(t, c.handle([]byte(`{"id":"2"}`)))
}

func TestActivityConsumerFactory_RequiresLogger(t *testing.T) {
	_, err := (&ActivityConsumerFactory{}).CreateConsumer(nil, nil)
	assert.Error(t, err)
}

func TestStartConsumers(t *testing.T) {
	consumers := []*stubConsumer{{started: make(chan struct{})}, {started: make(chan struct{})}}
	q := &Queue{Consumers: []Consumer{consumers[0], consumers[1]}}

	ctx, cancel := context.WithCancel(context.Background())
	wg := q.StartConsumers(ctx, zap.NewNop())

	for _, c := range consumers {
		select {
		case <-c.started:
		case <-time.After(time.Second):
			t.Fatal("consumer was not started")
		}
	}

	cancel()
	wg.Wait()
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	p.PublishActivity(context.Background(), "user", ActionCreated, "u1")
}
