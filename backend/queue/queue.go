package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Producer interface provides the Publish method to publish messages to RabbitMQ.
// Publish sends a message body as a byte array to RabbitMQ.
// Returns an error if there was a problem.
type Producer interface {
	Publish(body []byte) error
}

// Consumer interface provides the Consume method to consume messages from RabbitMQ.
// Consume listens to messages from RabbitMQ and handles the message stream until ctx is done.
type Consumer interface {
	Consume(ctx context.Context) error
}

// ProducerFactory interface provides the CreateProducer method to instantiate new producers.
type ProducerFactory interface {
	CreateProducer(ch *amqp.Channel, queue *amqp.Queue) (Producer, error)
}

// ConsumerFactory interface provides the CreateConsumer method to instantiate new consumers.
type ConsumerFactory interface {
	CreateConsumer(ch *amqp.Channel, queue *amqp.Queue) (Consumer, error)
}

// Queue struct holds slices of Producers and Consumers which can be used to send and consume messages.
type Queue struct {
	Producers []Producer
	Consumers []Consumer

	conn *amqp.Connection
	ch   *amqp.Channel
}

// connect establishes a connection to RabbitMQ and opens a new channel.
// An unexpected connection closure is logged.
func connect(url string, log *zap.Logger) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err := <-notifyClose; err != nil {
			log.Error("RabbitMQ connection closed", zap.Error(err))
		}
	}()

	return conn, ch, nil
}

// InitQueue initializes a Queue with producers and consumers.
// It connects to the RabbitMQ instance at url and declares a durable queue named queueName,
// then uses the factories to create the producers and consumers bound to that queue.
func InitQueue(url, queueName string, prodFactories []ProducerFactory, consFactories []ConsumerFactory, log *zap.Logger) (*Queue, error) {
	conn, ch, err := connect(url, log)
	if err != nil {
		return nil, fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}

	q := &Queue{conn: conn, ch: ch}

	declared, err := ch.QueueDeclare(
		queueName,
		true,  // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("error declaring queue: %w", err)
	}

	for _, prodFactory := range prodFactories {
		producer, err := prodFactory.CreateProducer(ch, &declared)
		if err != nil {
			q.Close()
			return nil, fmt.Errorf("error creating producer: %w", err)
		}
		q.Producers = append(q.Producers, producer)
	}

	for _, consFactory := range consFactories {
		consumer, err := consFactory.CreateConsumer(ch, &declared)
		if err != nil {
			q.Close()
			return nil, fmt.Errorf("error creating consumer: %w", err)
		}
		q.Consumers = append(q.Consumers, consumer)
	}

	return q, nil
}

// StartConsumers starts every consumer in its own goroutine. Consumers run
// until ctx is cancelled; the returned WaitGroup is done when all have stopped.
func (q *Queue) StartConsumers(ctx context.Context, log *zap.Logger) *sync.WaitGroup {
	var wg sync.WaitGroup

	for _, consumer := range q.Consumers {
		wg.Add(1)

		go func(c Consumer) {
			defer wg.Done()

			if err := c.Consume(ctx); err != nil {
				log.Error("consumer stopped", zap.Error(err))
			}
		}(consumer)
	}

	return &wg
}

// Close closes the channel and the connection.
func (q *Queue) Close() error {
	var errs []error
	if q.ch != nil {
		errs = append(errs, q.ch.Close())
	}
	if q.conn != nil {
		errs = append(errs, q.conn.Close())
	}
	return errors.Join(errs...)
}
