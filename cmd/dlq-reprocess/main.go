// Команда dlq-reprocess перечитывает DLQ витрины и возвращает исходные
// события сессий в основной topic. По умолчанию работает в режиме dry-run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second

	brokersEnv = "STOREFRONT_KAFKA_BROKERS"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

func (c config) mode() string {
	if c.execute {
		return "execute"
	}
	return "dry-run"
}

// replayMessage - событие, готовое к повторной публикации.
type replayMessage struct {
	topic         string
	key           string
	value         []byte
	eventType     string
	aggregateType string
	attempts      int
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

var newReplayDependencies = func(cfg config) (offsetClient, partitionConsumerSource, replayProducer, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	consumer := saramaConsumerAdapter{consumer: rawConsumer}

	if !cfg.execute {
		return client, consumer, nil, nil
	}

	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Compression = sarama.CompressionSnappy
	producerConfig.Producer.Idempotent = true
	producerConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.brokers, producerConfig)
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return client, consumer, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig(os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig(getenv func(string) string) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+brokersEnv+")")
	flag.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	flag.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicStorefrontEvents, "target topic for replay")
	flag.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	flag.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	flag.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" && getenv != nil {
		brokersRaw = getenv(brokersEnv)
	}
	cfg.brokers = parseBrokers(brokersRaw)

	var errs []error
	if len(cfg.brokers) == 0 {
		errs = append(errs, fmt.Errorf("kafka brokers are required (-brokers or %s)", brokersEnv))
	}
	if strings.TrimSpace(cfg.sourceTopic) == "" {
		errs = append(errs, errors.New("source-topic is required"))
	}
	if strings.TrimSpace(cfg.targetTopic) == "" {
		errs = append(errs, errors.New("target-topic is required"))
	}
	if cfg.sourceTopic == cfg.targetTopic && cfg.sourceTopic != "" {
		errs = append(errs, errors.New("source-topic and target-topic must differ"))
	}
	if cfg.limit <= 0 {
		errs = append(errs, errors.New("limit must be > 0"))
	}
	if cfg.idleTimeout <= 0 {
		errs = append(errs, errors.New("idle-timeout must be > 0"))
	}
	if err := errors.Join(errs...); err != nil {
		return config{}, err
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"mode":         cfg.mode(),
		"from_newest":  cfg.fromNewest,
	}).Info("starting dlq replay")

	client, consumer, producer, err := newReplayDependencies(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		if consumer != nil {
			_ = consumer.Close()
		}
		if client != nil {
			_ = client.Close()
		}
	}()

	_, err = runReplay(ctx, cfg, client, consumer, producer)
	return err
}

type partitionStats struct {
	processed int
	replayed  int
	skipped   int
}

func (s *partitionStats) add(other partitionStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
}

func runReplay(ctx context.Context, cfg config, client offsetClient, consumer partitionConsumerSource, producer replayProducer) (partitionStats, error) {
	var total partitionStats
	if client == nil || consumer == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if cfg.execute && producer == nil {
		return total, errors.New("producer is required in execute mode")
	}

	partitions, err := client.Partitions(cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", cfg.sourceTopic).Warn("source topic has no partitions")
		return total, nil
	}
	slices.Sort(partitions)

	for _, partition := range partitions {
		if total.processed >= cfg.limit {
			break
		}

		stats, err := processPartition(ctx, consumer, client, producer, cfg, partition, cfg.limit-total.processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	log.WithFields(log.Fields{
		"mode":      cfg.mode(),
		"processed": total.processed,
		"replayed":  total.replayed,
		"skipped":   total.skipped,
	}).Info("dlq replay finished")

	return total, nil
}

func processPartition(
	ctx context.Context,
	consumer partitionConsumerSource,
	client offsetClient,
	producer replayProducer,
	cfg config,
	partition int32,
	limit int,
) (partitionStats, error) {
	var stats partitionStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	startOffset := oldest
	if cfg.fromNewest {
		startOffset = max(newest-int64(limit), oldest)
	}

	pc, err := consumer.ConsumePartition(cfg.sourceTopic, partition, startOffset)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(cfg.idleTimeout)
	defer idleTimer.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case err := <-pc.Errors():
			if err != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, err)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil {
				return stats, nil
			}
			idleTimer.Reset(cfg.idleTimeout)

			if msg.Offset >= newest {
				return stats, nil
			}
			stats.processed++

			fields := log.Fields{"partition": msg.Partition, "offset": msg.Offset}
			replay, err := extractReplayMessage(msg, cfg.targetTopic, time.Now())
			if err != nil {
				stats.skipped++
				log.WithError(err).WithFields(fields).Warn("skip unsupported dlq message")
				continue
			}

			if cfg.execute {
				if err := publishReplay(producer, replay); err != nil {
					return stats, fmt.Errorf("publish replay message: %w", err)
				}
			} else {
				fields["target_topic"] = replay.topic
				fields["key"] = replay.key
				fields["event_type"] = replay.eventType
				fields["attempts"] = replay.attempts
				log.WithFields(fields).Info("dlq replay candidate")
			}
			stats.replayed++

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}

	return stats, nil
}

func publishReplay(producer replayProducer, msg replayMessage) error {
	if producer == nil {
		return errors.New("producer is nil")
	}

	producerMessage := &sarama.ProducerMessage{
		Topic:     msg.topic,
		Key:       sarama.StringEncoder(msg.key),
		Value:     sarama.ByteEncoder(msg.value),
		Timestamp: time.Now().UTC(),
	}
	if msg.eventType != "" {
		producerMessage.Headers = append(producerMessage.Headers,
			sarama.RecordHeader{Key: []byte(kafka.HeaderEventType), Value: []byte(msg.eventType)})
	}
	if msg.aggregateType != "" {
		producerMessage.Headers = append(producerMessage.Headers,
			sarama.RecordHeader{Key: []byte(kafka.HeaderAggregateType), Value: []byte(msg.aggregateType)})
	}

	_, _, err := producer.SendMessage(producerMessage)
	return err
}

// extractReplayMessage восстанавливает исходный envelope из DLQ-записи
// и переупаковывает его с новым временем публикации.
func extractReplayMessage(msg *sarama.ConsumerMessage, targetTopic string, now time.Time) (replayMessage, error) {
	if msg == nil || len(msg.Value) == 0 {
		return replayMessage{}, errors.New("empty dlq message")
	}

	letter, err := messaging.UnwrapDeadLetter(msg.Value)
	if err != nil {
		return replayMessage{}, err
	}

	original := letter.Original
	original.PublishedAt = now.UTC()
	encoded, err := messaging.Marshal(original)
	if err != nil {
		return replayMessage{}, err
	}

	key := original.AggregateID
	if key == "" {
		key = original.ID
	}

	return replayMessage{
		topic:         targetTopic,
		key:           key,
		value:         encoded,
		eventType:     original.EventType,
		aggregateType: original.AggregateType,
		attempts:      letter.Attempts,
	}, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
