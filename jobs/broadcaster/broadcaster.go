// Package broadcaster drains the journal to Kafka. Records move
// NEW -> SENT -> ACKED; anything not acked gets republished on the next
// sweep, so downstream consumers must dedupe on the record sequence.
package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/sedoy107/iot-dex/infra/journal"
)

const sweepInterval = 250 * time.Millisecond

type Broadcaster struct {
	journal  *journal.Journal
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func New(j *journal.Journal, brokers []string, topic string, lg *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Broadcaster{
		journal:  j,
		producer: producer,
		topic:    topic,
		log:      lg.Named("broadcaster"),
	}, nil
}

// Start launches the drain loop. It stops when ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("started", zap.String("topic", b.topic))

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.replayOnce()
			}
		}
	}()
}

// replayOnce publishes every pending record. Mark SENT before the send so a
// crash mid-publish leaves the record in a state the next sweep retries.
func (b *Broadcaster) replayOnce() {
	err := b.journal.ScanPending(func(rec journal.Record) error {
		if err := b.journal.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(rec.Name),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("publish failed, will retry",
				zap.Uint64("seq", rec.Seq),
				zap.Uint32("retries", rec.Retries),
				zap.Error(err))
			return nil // leave SENT, retried next sweep
		}

		return b.journal.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Error("journal sweep failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
