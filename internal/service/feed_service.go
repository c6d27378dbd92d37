package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/observability"
)

const feedBufferSize = 16

// FeedPublisher is the producer side of the admin live feed. The evaluation
// service pushes every stored evaluation through it.
type FeedPublisher interface {
	Publish(ctx context.Context, row dto.AdminEvaluationResponse)
}

// FeedService fans freshly stored evaluations out to admin dashboards over
// SSE. Events are mirrored through Redis pub/sub and NATS so every node sees
// evaluations stored by its peers.
type FeedService interface {
	FeedPublisher
	Subscribe() (<-chan dto.AdminEvaluationResponse, func())
	Start(ctx context.Context)
}

type feedService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *feedBroker
	nodeID       string
}

type feedEvent struct {
	Source string                      `json:"source"`
	Row    dto.AdminEvaluationResponse `json:"row"`
	SentAt time.Time                   `json:"sent_at"`
}

type feedBroker struct {
	mu          sync.RWMutex
	subscribers map[chan dto.AdminEvaluationResponse]struct{}
}

// NewFeedService constructs the live feed service. Redis and NATS are both
// optional; with neither configured the feed degrades to single-node fan-out.
func NewFeedService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) FeedService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":evaluations"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".evaluations"
	}

	return &feedService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "feed_service").Logger(),
		broker: &feedBroker{
			subscribers: make(map[chan dto.AdminEvaluationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *feedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *feedService) Publish(ctx context.Context, row dto.AdminEvaluationResponse) {
	s.broadcast(row)
	observability.FeedEvents().WithLabelValues("local").Inc()

	event := feedEvent{
		Source: s.nodeID,
		Row:    row,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode feed event")
		return
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish feed event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish feed event to nats")
		}
	}
}

func (s *feedService) Subscribe() (<-chan dto.AdminEvaluationResponse, func()) {
	channel := make(chan dto.AdminEvaluationResponse, feedBufferSize)

	s.broker.subscribe(channel)
	observability.FeedClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(channel)
		observability.FeedClientsActive().Dec()
	}

	return channel, cleanup
}

func (s *feedService) broadcast(row dto.AdminEvaluationResponse) {
	s.broker.broadcast(row)
}

func (s *feedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("feed redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *feedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "promptlab-feed", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats feed subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain feed nats subscription")
		}
	}()
}

func (s *feedService) handleEvent(payload []byte) {
	var event feedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid feed event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	observability.FeedEvents().WithLabelValues("remote").Inc()
	s.broadcast(event.Row)
}

func (b *feedBroker) subscribe(ch chan dto.AdminEvaluationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[ch] = struct{}{}
}

func (b *feedBroker) unsubscribe(ch chan dto.AdminEvaluationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *feedBroker) broadcast(row dto.AdminEvaluationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Slow consumers drop events rather than blocking the publisher.
	for ch := range b.subscribers {
		select {
		case ch <- row:
		default:
		}
	}
}
