package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/manjushapaul/Crypto-sub001/internal/config"
	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// Connect opens a client and checks the server answers.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	const op = "storage.redis.Connect"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return client, nil
}

// Publisher fans notifications out through a redis channel.
type Publisher struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

func NewPublisher(client *redis.Client, channel string, log *slog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
		log:     log,
	}
}

func (p *Publisher) Notify(event models.NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("failed to encode notification event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Error("failed to publish notification", "channel", p.channel, "error", err)
	}
}

// Subscriber listens on the notifications channel and hands every payload
// to a callback.
type Subscriber struct {
	client  *redis.Client
	channel string
	log     *slog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

func NewSubscriber(client *redis.Client, channel string, log *slog.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		channel: channel,
		log:     log,
	}
}

// Run blocks until ctx is cancelled or the subscription is closed.
func (s *Subscriber) Run(ctx context.Context, handle func(payload []byte)) error {
	const op = "storage.redis.Subscriber.Run"

	pubsub := s.client.Subscribe(ctx, s.channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("%s: subscribe %s: %w", op, s.channel, err)
	}

	s.mu.Lock()
	s.pubsub = pubsub
	s.mu.Unlock()

	s.log.Info("subscribed to redis channel", "channel", s.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("redis listener stopped due to context cancellation")
			return nil
		case msg, ok := <-ch:
			if !ok {
				s.log.Warn("redis pubsub channel closed")
				return nil
			}
			handle([]byte(msg.Payload))
		}
	}
}

func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pubsub == nil {
		return
	}

	if err := s.pubsub.Close(); err != nil {
		s.log.Warn("error closing pubsub", "channel", s.channel, "error", err)
	}
	s.pubsub = nil
	s.log.Info("redis subscriber closed")
}
