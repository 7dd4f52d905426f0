package kafka

import (
	// Go Internal Packages
	"context"
	"errors"

	// Local Packages
	models "pix-stream/models"

	// External Packages
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc processes one message; a returned error triggers redelivery.
type HandlerFunc func(ctx context.Context, msg models.Message) error

type Consumer struct {
	Client    *kgo.Client
	Config    *models.ConsumerConfig
	Handler   HandlerFunc
	Logger    *zap.Logger
	Redeliver *Redeliverer
}

// NewConsumer creates a consumer group member for one observer. Records of a
// partition are handled in order; partitions are handled in parallel.
// (PS: Must call Poll to start consuming the records)
func NewConsumer(conf *models.ConsumerConfig, handler HandlerFunc, metrics *kprom.Metrics, logger *zap.Logger) (*Consumer, error) {
	logger = logger.With(zap.String("consumer", conf.Name))
	c := &Consumer{
		Config:    conf,
		Handler:   handler,
		Logger:    logger,
		Redeliver: NewRedeliverer(conf.MaxRedeliveries, logger),
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(conf.Brokers...),
		kgo.ConsumerGroup(conf.Name),
		kgo.ConsumeTopics(conf.Topics...),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	}
	if metrics != nil {
		opts = append(opts, kgo.WithHooks(metrics))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	c.Client = client
	return c, nil
}

// Poll polls for records until ctx is canceled or the client is closed.
func (c *Consumer) Poll(ctx context.Context) error {
	defer c.Client.Close()

	for {
		if ctx.Err() != nil {
			c.Logger.Info("polling stopped: context canceled")
			return nil
		}

		fetches := c.Client.PollRecords(ctx, c.Config.RecordsPerPoll)
		if fetches.IsClientClosed() {
			return errors.New("kafka client closed")
		}
		if errors.Is(fetches.Err0(), context.Canceled) {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.Logger.Error("fetch failed", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})

		var g errgroup.Group
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			records := p.Records
			g.Go(func() error {
				for _, record := range records {
					// Exhausted redeliveries are logged and committed past;
					// the dead-letter copy already holds the message.
					_ = c.Redeliver.Deliver(ctx, toMessage(record), c.Handler)
				}
				return nil
			})
		})
		_ = g.Wait()

		if ctx.Err() != nil {
			c.Client.AllowRebalance()
			return nil
		}
		if err := c.Client.CommitRecords(ctx, fetches.Records()...); err != nil {
			c.Logger.Error("commit failed", zap.Error(err))
		}
		c.Client.AllowRebalance()
	}
}

func toMessage(r *kgo.Record) models.Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return models.Message{
		Topic:     r.Topic,
		Key:       r.Key,
		Headers:   headers,
		Value:     r.Value,
		Partition: r.Partition,
		Offset:    r.Offset,
	}
}

func toRecord(m models.Message) *kgo.Record {
	headers := make([]kgo.RecordHeader, 0, len(m.Headers))
	for k, v := range m.Headers {
		headers = append(headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return &kgo.Record{Topic: m.Topic, Key: m.Key, Value: m.Value, Headers: headers}
}
