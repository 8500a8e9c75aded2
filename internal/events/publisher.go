// Package events announces saved forecasts to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/models"
)

// Supported publisher backends.
const (
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendKafka = "kafka"
)

// ForecastSaved is emitted once per forecast persisted by a run.
type ForecastSaved struct {
	RunID           string    `json:"run_id"`
	ModelName       string    `json:"model_name"`
	ModelVersion    string    `json:"model_version"`
	GSPID           int       `json:"gsp_id"`
	CreationTimeUTC time.Time `json:"creation_time_utc"`
	ValueCount      int       `json:"value_count"`
	FirstTargetUTC  time.Time `json:"first_target_time_utc"`
	LastTargetUTC   time.Time `json:"last_target_time_utc"`
}

// NewForecastSaved summarizes f for publishing.
func NewForecastSaved(runID string, f models.Forecast) ForecastSaved {
	ev := ForecastSaved{
		RunID:           runID,
		ModelName:       f.Model.Name,
		ModelVersion:    f.Model.Version,
		GSPID:           f.Location.GSPID,
		CreationTimeUTC: f.CreationTime.UTC(),
		ValueCount:      len(f.Values),
	}
	if n := len(f.Values); n > 0 {
		ev.FirstTargetUTC = f.Values[0].TargetTime.UTC()
		ev.LastTargetUTC = f.Values[n-1].TargetTime.UTC()
	}
	return ev
}

// Key partitions events by location.
func (e ForecastSaved) Key() string {
	return strconv.Itoa(e.GSPID)
}

// Publisher delivers ForecastSaved events.
type Publisher interface {
	PublishForecastSaved(ctx context.Context, ev ForecastSaved) error
	Close() error
}

// Config selects and configures a Publisher.
type Config struct {
	Backend      string
	RedisURL     string
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
}

// NewPublisher builds the Publisher named by cfg.Backend.
func NewPublisher(cfg Config) (Publisher, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return NopPublisher{}, nil
	case BackendRedis:
		return NewRedisPublisher(cfg.RedisURL, cfg.RedisChannel)
	case BackendKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) PublishForecastSaved(context.Context, ForecastSaved) error { return nil }
func (NopPublisher) Close() error { return nil }

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(url, channel string) (*RedisPublisher, error) {
	if channel == "" {
		return nil, fmt.Errorf("redis channel is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisPublisher{client: redis.NewClient(opts), channel: channel}, nil
}

func (p *RedisPublisher) PublishForecastSaved(ctx context.Context, ev ForecastSaved) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", p.channel, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// KafkaPublisher writes events to a Kafka topic keyed by GSP id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}, nil
}

func (p *KafkaPublisher) PublishForecastSaved(ctx context.Context, ev ForecastSaved) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := kafka.Message{Key: []byte(ev.Key()), Value: payload}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
