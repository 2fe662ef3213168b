package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/masteryflow/masteryflow/notifications/email"
	cache "github.com/masteryflow/masteryflow/storage/cache"
	"github.com/streadway/amqp"
)

// Notification kinds carried on the queue. Each kind maps to one email shape.
const (
	KindConfirmation  = "CONFIRMATION"
	KindMissionReady  = "MISSION_READY"
	KindStreakWarning = "STREAK_WARNING"
)

// processedTTL bounds how long a delivered notification id is remembered for
// deduplication. Redeliveries arrive within seconds, not days.
const processedTTL = 48 * time.Hour

// globalCount feeds the round robin that spreads publishes over producers.
var globalCount uint64

// NotificationMessage is the wire format of one queued notification. Only the
// fields relevant to the Kind are populated.
type NotificationMessage struct {
	Id   string `json:"id"`   // unique id of the message, used for deduplication
	Kind string `json:"kind"` // one of the Kind* constants
	To   string `json:"to"`   // the recipient's email address

	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"` // CONFIRMATION: the email confirmation token

	MissionDate      string `json:"mission_date,omitempty"`      // MISSION_READY
	TaskCount        int    `json:"task_count,omitempty"`        // MISSION_READY
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"` // MISSION_READY

	CurrentStreak int `json:"current_streak,omitempty"` // STREAK_WARNING
}

// NotificationProducerFactory creates NotificationProducer instances.
type NotificationProducerFactory struct{}

// NotificationConsumerFactory creates NotificationConsumer instances.
// The Cache records delivered message ids so redelivered messages are not
// emailed twice.
type NotificationConsumerFactory struct {
	Cache cache.CacheInterface
}

// NotificationProducer publishes notification messages onto the AMQP queue.
type NotificationProducer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
}

// NotificationConsumer reads notification messages off the AMQP queue and
// delivers them by email, exactly once per message id.
type NotificationConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
	cache   cache.CacheInterface
}

// CreateProducer builds a NotificationProducer bound to the given connection,
// channel and queue.
func (f *NotificationProducerFactory) CreateProducer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Producer, error) {
	return &NotificationProducer{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

// CreateConsumer builds a NotificationConsumer bound to the given connection,
// channel, queue and the factory's cache.
func (f *NotificationConsumerFactory) CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error) {
	return &NotificationConsumer{
		conn:    conn,
		channel: ch,
		queue:   queue,
		cache:   f.Cache,
	}, nil
}

// Publish sends one serialized notification to the queue.
func (np *NotificationProducer) Publish(body []byte) error {
	err := np.channel.Publish(
		"",            // exchange
		np.queue.Name, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// deliver sends the email matching the message kind. An unknown kind is an
// error so the message is not silently dropped as acknowledged-and-ignored.
func deliver(message *NotificationMessage) error {
	switch message.Kind {
	case KindConfirmation:
		return email.SendConfirmationEmail(message.To, message.Token)
	case KindMissionReady:
		return email.SendMissionReminder(message.To, message.Username, message.MissionDate, message.TaskCount, message.EstimatedMinutes)
	case KindStreakWarning:
		return email.SendStreakWarning(message.To, message.Username, message.CurrentStreak)
	default:
		return fmt.Errorf("unknown notification kind %q", message.Kind)
	}
}

// Consume registers this consumer on the queue and launches a worker that
// reads deliveries until the context is cancelled. Each message is
// unmarshalled, checked against the processed-id cache, and then either
// delivered by email and acknowledged, or negatively acknowledged with
// requeue on transient failure. A message whose id is already in the cache is
// acknowledged without re-sending.
func (nc *NotificationConsumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := nc.channel.Consume(
		nc.queue.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case d, ok := <-msgs:
				if !ok {
					return
				}

				message := &NotificationMessage{}
				if err := json.Unmarshal(d.Body, message); err != nil {
					log.Printf("failed to unmarshal notification message: %v", err)
					d.Nack(false, false) // malformed, requeueing cannot help
					continue
				}

				processed, err := nc.cache.Get(ctx, processedKey(message.Id))
				if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
					log.Printf("error checking cache: %v", err)
					d.Nack(false, true) // requeue on transient cache error
					continue
				}

				if processed != nil {
					d.Ack(false)
					continue
				}

				if err := deliver(message); err != nil {
					log.Printf("failed to deliver %s notification: %v", message.Kind, err)
					d.Nack(false, true)
					continue
				}

				d.Ack(false)
				if err := nc.cache.Set(ctx, processedKey(message.Id), true, processedTTL); err != nil {
					log.Printf("failed to mark notification as processed: %v", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return msgs, nil
}

func processedKey(id string) string {
	return "notif_" + id
}

// BuildNotificationQueue initializes the queue carrying every outbound
// notification, with the requested number of producers and consumers. The
// cache backs per-message-id deduplication in the consumers.
func BuildNotificationQueue(rabbitMQURL string, numProducers int, numConsumers int, dedupCache cache.CacheInterface) *Queue {
	prodFactories := make([]ProducerFactory, numProducers)
	for i := 0; i < numProducers; i++ {
		prodFactories[i] = &NotificationProducerFactory{}
	}

	consFactories := make([]ConsumerFactory, numConsumers)
	for i := 0; i < numConsumers; i++ {
		consFactories[i] = &NotificationConsumerFactory{Cache: dedupCache}
	}

	return InitQueue(rabbitMQURL, "notificationQueue", prodFactories, consFactories)
}

// InitNotificationCache connects the cache used for notification
// deduplication. A backend that cannot reach its cache sends duplicate
// emails, so the failure is fatal.
func InitNotificationCache(url string) cache.CacheInterface {
	c, err := cache.NewCache(url)
	if err != nil {
		log.Fatalf("Error connecting to cache: %v", err)
	}
	return c
}

// PublishNotification serializes the message and publishes it through one of
// the queue's producers, chosen round robin.
func PublishNotification(msg *NotificationMessage, q *Queue) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.New("failed to marshal notification message: " + err.Error())
	}

	producerCount := len(q.Producers)
	if producerCount == 0 {
		return errors.New("no producers available")
	}

	producer := q.Producers[int(atomic.AddUint64(&globalCount, 1)-1)%producerCount]

	if err := producer.Publish(body); err != nil {
		return errors.New("failed to publish notification message: " + err.Error())
	}

	return nil
}
