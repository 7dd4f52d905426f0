package kafka

import (
	// Go Internal Packages
	"context"

	// Local Packages
	models "pix-stream/models"

	// External Packages
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// Producer publishes envelopes synchronously so callers know the broker
// accepted them before acknowledging their own input.
type Producer struct {
	client *kgo.Client
	logger *zap.Logger
}

func NewProducer(brokers []string, metrics *kprom.Metrics, logger *zap.Logger) (*Producer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	}
	if metrics != nil {
		opts = append(opts, kgo.WithHooks(metrics))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return &Producer{client: client, logger: logger}, nil
}

func (p *Producer) Publish(ctx context.Context, msgs ...models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	records := make([]*kgo.Record, len(msgs))
	for i, m := range msgs {
		records[i] = toRecord(m)
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		p.logger.Error("publish failed", zap.String("topic", msgs[0].Topic), zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() {
	p.client.Close()
}
