package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Actions recorded on the activity feed.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ActivityMessage describes one change to a stored entity.
type ActivityMessage struct {
	ID       string    `json:"id"`
	Entity   string    `json:"entity"`
	Action   string    `json:"action"`
	EntityID string    `json:"entityId"`
	At       time.Time `json:"at"`
}

// Publisher records entity changes on the activity feed. Publishing never
// fails the caller; problems are logged by the implementation.
type Publisher interface {
	PublishActivity(ctx context.Context, entity, action, entityID string)
}

// NopPublisher discards every activity. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishActivity(context.Context, string, string, string) {}

// ActivityProducerFactory creates ActivityProducer instances.
type ActivityProducerFactory struct{}

// ActivityConsumerFactory creates ActivityConsumer instances that log what they receive.
type ActivityConsumerFactory struct {
	Log *zap.Logger
}

// ActivityProducer publishes activity messages on a single channel.
type ActivityProducer struct {
	channel *amqp.Channel
	queue   *amqp.Queue
}

// ActivityConsumer reads activity messages from the queue.
type ActivityConsumer struct {
	channel *amqp.Channel
	queue   *amqp.Queue
	log     *zap.Logger
}

func (f *ActivityProducerFactory) CreateProducer(ch *amqp.Channel, queue *amqp.Queue) (Producer, error) {
	return &ActivityProducer{channel: ch, queue: queue}, nil
}

func (f *ActivityConsumerFactory) CreateConsumer(ch *amqp.Channel, queue *amqp.Queue) (Consumer, error) {
	if f.Log == nil {
		return nil, errors.New("activity consumer needs a logger")
	}
	return &ActivityConsumer{channel: ch, queue: queue, log: f.Log}, nil
}

// Publish sends body to the activity queue as a persistent JSON message.
func (p *ActivityProducer) Publish(body []byte) error {
	err := p.channel.Publish(
		"",           // exchange
		p.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}
	return nil
}

// Consume reads deliveries until ctx is done or the channel closes.
// Malformed messages are rejected without requeueing.
func (c *ActivityConsumer) Consume(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := c.handle(d.Body); err != nil {
				c.log.Warn("dropping activity message", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *ActivityConsumer) handle(body []byte) error {
	msg := &ActivityMessage{}
	if err := json.Unmarshal(body, msg); err != nil {
		return fmt.Errorf("failed to unmarshal activity message: %w", err)
	}
	if msg.Entity == "" || msg.Action == "" {
		return errors.New("activity message without entity or action")
	}

	c.log.Info("activity",
		zap.String("id", msg.ID),
		zap.String("entity", msg.Entity),
		zap.String("action", msg.Action),
		zap.String("entityId", msg.EntityID),
		zap.Time("at", msg.At))
	return nil
}

// BuildActivityQueue initializes a Queue for the activity feed with the given
// number of producers and consumers.
func BuildActivityQueue(rabbitMQURL, queueName string, numProducers, numConsumers int, log *zap.Logger) (*Queue, error) {
	prodFactories := make([]ProducerFactory, numProducers)
	for i := range prodFactories {
		prodFactories[i] = &ActivityProducerFactory{}
	}

	consFactories := make([]ConsumerFactory, numConsumers)
	for i := range consFactories {
		consFactories[i] = &ActivityConsumerFactory{Log: log}
	}

	return InitQueue(rabbitMQURL, queueName, prodFactories, consFactories, log)
}

// ActivityPublisher serializes activity messages and hands them to the
// queue's producers in round-robin order.
type ActivityPublisher struct {
	queue *Queue
	log   *zap.Logger
	next  atomic.Uint64
	now   func() time.Time
}

func NewActivityPublisher(q *Queue, log *zap.Logger) *ActivityPublisher {
	return &ActivityPublisher{queue: q, log: log, now: time.Now}
}

// PublishActivity implements Publisher.
func (p *ActivityPublisher) PublishActivity(_ context.Context, entity, action, entityID string) {
	msg := &ActivityMessage{
		ID:       uuid.NewString(),
		Entity:   entity,
		Action:   action,
		EntityID: entityID,
		At:       p.now().UTC(),
	}
	if err := p.publish(msg); err != nil {
		p.log.Warn("failed to publish activity",
			zap.String("entity", entity),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (p *ActivityPublisher) publish(msg *ActivityMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal activity message: %w", err)
	}

	producerCount := uint64(len(p.queue.Producers))
	if producerCount == 0 {
		return errors.New("no producers available")
	}

	producer := p.queue.Producers[(p.next.Add(1)-1)%producerCount]
	return producer.Publish(body)
}
