package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

const contentTypeHeader = "content-type"

// Producer writes JSON documents to Kafka. Writes are synchronous: Publish
// returns once the broker acknowledged the batch holding the message.
type Producer struct {
	writer      *kafka.Writer
	compression string
}

// NewProducer validates the configuration and builds the writer. No
// connection is opened until the first Publish.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	codec, _ := compressionCodec(cfg.Compression)

	var balancer kafka.Balancer = &kafka.LeastBytes{}
	if cfg.Keyed {
		balancer = &kafka.Hash{}
	}

	producerMetricsOnce.Do(registerProducerMetrics)
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     balancer,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			MaxAttempts:  cfg.MaxAttempts,
			Compression:  codec,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   int64(cfg.BatchBytes),
			BatchTimeout: cfg.Linger,
		},
		compression: cfg.Compression,
	}, nil
}

// Publish encodes value and writes it to topic under key. Byte slices and
// strings are sent as-is, anything else as JSON.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	payload, err := encodeValue(value)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   payload,
		Time:    start,
		Headers: []kafka.Header{{Key: contentTypeHeader, Value: []byte("application/json")}},
	})
	p.observe(topic, len(payload), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending batches and releases connections.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case json.RawMessage:
		return v, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}

var (
	producerMetricsOnce sync.Once
	producerMessages    *prometheus.CounterVec
	producerBytes       *prometheus.CounterVec
	producerLatency     *prometheus.HistogramVec
)

func registerProducerMetrics() {
	producerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alertengine",
		Subsystem: "kafka_producer",
		Name:      "messages_total",
		Help:      "Messages written to Kafka by outcome.",
	}, []string{"topic", "result"})
	producerBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alertengine",
		Subsystem: "kafka_producer",
		Name:      "bytes_total",
		Help:      "Uncompressed payload bytes written.",
	}, []string{"topic", "compression"})
	producerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "alertengine",
		Subsystem: "kafka_producer",
		Name:      "publish_seconds",
		Help:      "Time until the broker acknowledged a write.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"topic"})
}

func (p *Producer) observe(topic string, size int, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMessages.WithLabelValues(topic, result).Inc()
	if err == nil {
		producerBytes.WithLabelValues(topic, p.compression).Add(float64(size))
	}
	producerLatency.WithLabelValues(topic).Observe(d.Seconds())
}
