// Package kafka publishes pipeline run events so downstream consumers
// (dashboards, alerting) can follow training and forecast runs.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/pkg/types"
)

const EventsTopic = "forecast-job-events"

type Producer struct {
	producer sarama.SyncProducer
	logger   zerolog.Logger
}

func NewProducer(brokers []string, logger zerolog.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &Producer{
		producer: producer,
		logger:   logger.With().Str("component", "kafka").Logger(),
	}, nil
}

// PublishJobEvent emits one run transition, keyed by run id so all events of
// a run land on the same partition in order.
func (p *Producer) PublishJobEvent(ev types.JobEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode job event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: EventsTopic,
		Key:   sarama.StringEncoder(ev.RunID),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	p.logger.Debug().Str("run_id", ev.RunID).Str("job", ev.Job).
		Str("state", string(ev.State)).Msg("job event published")
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
