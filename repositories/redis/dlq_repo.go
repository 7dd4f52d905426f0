package redis

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"fmt"

	// Local Packages
	models "pix-stream/models"

	// External Packages
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ParkingLot keeps dead-letter copies that could not be published to the bus,
// so a broker outage during escalation does not lose the original message.
type ParkingLot struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

type parkedMessage struct {
	Topic   string            `json:"topic"`
	Key     []byte            `json:"key"`
	Headers map[string]string `json:"headers"`
	Value   []byte            `json:"value"`
}

func NewParkingLot(client *redis.Client, logger *zap.Logger) *ParkingLot {
	return &ParkingLot{client: client, logger: logger, prefix: "dlq"}
}

// Send stores every message under "dlq:{topic}:{key}:{uuid}". Dead-letter
// copies carry no offset, so two copies of one key still park apart.
func (r *ParkingLot) Send(ctx context.Context, records []models.Message) error {
	if len(records) == 0 {
		return nil
	}

	stored := 0
	var firstErr error
	for _, record := range records {
		jsonData, err := json.Marshal(parkedMessage{
			Topic:   record.Topic,
			Key:     record.Key,
			Headers: record.Headers,
			Value:   record.Value,
		})
		if err != nil {
			r.logger.Error("failed to marshal record", zap.Error(err))
			continue
		}

		key := fmt.Sprintf("%s:%s:%s:%s", r.prefix, record.Topic, record.Key, uuid.NewString())
		if err := r.client.Set(ctx, key, jsonData, 0).Err(); err != nil {
			r.logger.Error("failed to park record", zap.String("key", key), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		stored++
	}

	if stored > 0 {
		r.logger.Info("parked dead-letter records", zap.Int("count", stored))
	}
	return firstErr
}

// Drain removes and returns parked messages, to be republished by an operator.
func (r *ParkingLot) Drain(ctx context.Context, limit int) ([]models.Message, error) {
	var out []models.Message
	iter := r.client.Scan(ctx, 0, r.prefix+":*", scanBatch).Iterator()
	for iter.Next(ctx) && (limit <= 0 || len(out) < limit) {
		raw, err := r.client.GetDel(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var p parkedMessage
		if err := json.Unmarshal(raw, &p); err != nil {
			r.logger.Error("dropping unreadable parked record", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		out = append(out, models.Message{Topic: p.Topic, Key: p.Key, Headers: p.Headers, Value: p.Value})
	}
	return out, iter.Err()
}
