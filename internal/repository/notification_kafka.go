package repository

import (
	"context"
	"fmt"

	"AlertEngine/internal/domain/models"
	domrepo "AlertEngine/internal/domain/repository"
	pkgkafka "AlertEngine/pkg/kafka"
)

// Publisher is the subset of the Kafka producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaNotificationSink publishes alert envelopes keyed by rule id, so all
// events of one rule land on the same partition in order.
type KafkaNotificationSink struct {
	pub         Publisher
	topic       string
	templateKey string
}

var (
	_ domrepo.NotificationSink = (*KafkaNotificationSink)(nil)
	_ Publisher                = (*pkgkafka.Producer)(nil)
)

func NewKafkaNotificationSink(pub Publisher, topic, templateKey string) *KafkaNotificationSink {
	return &KafkaNotificationSink{pub: pub, topic: topic, templateKey: templateKey}
}

func (s *KafkaNotificationSink) Send(ctx context.Context, e *models.AlertEvent) error {
	env, err := newEnvelope(e, s.templateKey)
	if err != nil {
		return err
	}
	if err := s.pub.Publish(ctx, s.topic, []byte(e.RuleID.String()), env); err != nil {
		return fmt.Errorf("publish alert event: %w", err)
	}
	return nil
}
