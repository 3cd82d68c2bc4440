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

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/observability"
)

const changeFeedBufferSize = 16

// ChangeFeedService fans out record-changed events to collaborators.
// Translating an event into email or UI cache invalidation belongs to the
// subscriber, not this engine.
type ChangeFeedService interface {
	PublishRecordChange(ctx context.Context, event dto.RecordChangeEvent)
	Subscribe(userID uint) (<-chan dto.RecordChangeEvent, func())
	Start(ctx context.Context)
}

type changeFeedService struct {
	redis       *redis.Client
	redisChan   string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	broker      *changeFeedBroker
	nodeID      string
}

type changeFeedEnvelope struct {
	Source string                `json:"source"`
	Event  dto.RecordChangeEvent `json:"event"`
	SentAt time.Time             `json:"sent_at"`
}

type changeFeedBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.RecordChangeEvent]struct{}
}

// NewChangeFeedService constructs the change feed. Redis and NATS are both
// optional; with neither configured events still reach local subscribers.
func NewChangeFeedService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ChangeFeedService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":record-changes"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".record-changes"
	}

	return &changeFeedService{
		redis:       redisClient,
		redisChan:   channel,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "change_feed_service").Logger(),
		broker: &changeFeedBroker{
			subscribers: make(map[uint]map[chan dto.RecordChangeEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *changeFeedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChan != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *changeFeedService) PublishRecordChange(ctx context.Context, event dto.RecordChangeEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	s.broker.broadcast(event.UserID, event)
	observability.RecordChangeEventsTotal().WithLabelValues(event.Action).Inc()

	envelope := changeFeedEnvelope{Source: s.nodeID, Event: event, SentAt: time.Now().UTC()}
	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode record change event")
		return
	}

	if s.redis != nil && s.redisChan != "" {
		if err := s.redis.Publish(ctx, s.redisChan, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish record change to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish record change to nats")
		}
	}
}

func (s *changeFeedService) Subscribe(userID uint) (<-chan dto.RecordChangeEvent, func()) {
	channel := make(chan dto.RecordChangeEvent, changeFeedBufferSize)

	s.broker.subscribe(userID, channel)

	cleanup := func() {
		s.broker.unsubscribe(userID, channel)
	}

	return channel, cleanup
}

func (s *changeFeedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChan)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("record change redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *changeFeedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "arccm-record-changes", func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats record change subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain record change nats subscription")
		}
	}()
}

func (s *changeFeedService) handleEnvelope(payload []byte) {
	var envelope changeFeedEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid record change payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.broker.broadcast(envelope.Event.UserID, envelope.Event)
}

func (b *changeFeedBroker) subscribe(userID uint, ch chan dto.RecordChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.RecordChangeEvent]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *changeFeedBroker) unsubscribe(userID uint, ch chan dto.RecordChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *changeFeedBroker) broadcast(userID uint, event dto.RecordChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}
