package outbox

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer lazily manages one synchronous writer per topic. Records are
// hashed by key so every event of a run lands on the same partition.
type KafkaProducer struct {
	brokers      []string
	writeTimeout time.Duration
	logger       *log.Logger
	mu           sync.Mutex
	writers      map[string]*kafka.Writer
}

// ProducerOption configures a KafkaProducer.
type ProducerOption func(*KafkaProducer)

// WithProducerLogger routes writer errors to logger, prefixed with the topic.
func WithProducerLogger(logger *log.Logger) ProducerOption {
	return func(p *KafkaProducer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithWriteTimeout bounds a single broker write. Non-positive values are ignored.
func WithWriteTimeout(timeout time.Duration) ProducerOption {
	return func(p *KafkaProducer) {
		if timeout > 0 {
			p.writeTimeout = timeout
		}
	}
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string, opts ...ProducerOption) *KafkaProducer {
	p := &KafkaProducer{
		brokers:      brokers,
		writeTimeout: 10 * time.Second,
		logger:       log.New(log.Writer(), "[kafka] ", log.LstdFlags),
		writers:      make(map[string]*kafka.Writer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WriteMessages writes messages to the given topic, creating a writer if necessary.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	writer := p.writerForTopic(topic)
	return writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: p.writeTimeout,
		Async:        false,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			p.logger.Printf("topic=%s: "+msg, append([]interface{}{topic}, args...)...)
		}),
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
