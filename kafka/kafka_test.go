package kafka

import (
	// Go Internal Packages
	"context"
	"fmt"
	"testing"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"

	// External Packages
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

func TestRedeliveryIsBounded(t *testing.T) {
	tests := []struct {
		name      string
		max       int
		failFirst int
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first time", 3, 0, 1, false},
		{"recovers on second attempt", 3, 1, 2, false},
		{"gives up after max", 3, 100, 4, true},
		{"no redelivery configured", 0, 100, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRedeliverer(tt.max, zap.NewNop())
			r.Backoff = time.Millisecond

			calls := 0
			err := r.Deliver(context.Background(), models.Message{Topic: "t"}, func(context.Context, models.Message) error {
				calls++
				if calls <= tt.failFirst {
					return fmt.Errorf("attempt %d failed", calls)
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestInvalidPayloadIsNotRedelivered(t *testing.T) {
	r := NewRedeliverer(3, zap.NewNop())
	r.Backoff = time.Millisecond

	calls := 0
	err := r.Deliver(context.Background(), models.Message{}, func(context.Context, models.Message) error {
		calls++
		return errors.InvalidBodyErr(fmt.Errorf("unexpected end of JSON input"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFinalAttemptIsTheLastRedelivery(t *testing.T) {
	assert.True(t, FinalAttempt(context.Background()))

	r := NewRedeliverer(2, zap.NewNop())
	r.Backoff = time.Millisecond

	var finals []bool
	err := r.Deliver(context.Background(), models.Message{}, func(ctx context.Context, _ models.Message) error {
		finals = append(finals, FinalAttempt(ctx))
		return fmt.Errorf("down")
	})
	require.Error(t, err)
	assert.Equal(t, []bool{false, false, true}, finals)

	finals = nil
	err = r.Deliver(context.Background(), models.Message{}, func(ctx context.Context, _ models.Message) error {
		finals = append(finals, FinalAttempt(ctx))
		if len(finals) == 1 {
			return fmt.Errorf("down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, finals)
}

func TestRedeliveryStopsOnCancel(t *testing.T) {
	r := NewRedeliverer(5, zap.NewNop())
	r.Backoff = time.Hour
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := r.Deliver(ctx, models.Message{}, func(context.Context, models.Message) error {
		calls++
		return fmt.Errorf("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRecordConversionKeepsBytes(t *testing.T) {
	value := []byte{0x7b, 0x22, 0x61, 0x22, 0x3a, 0x31, 0x7d, 0x00, 0xff}
	msg := models.Message{
		Topic:   "pix.payment.dead-letter",
		Key:     []byte("req-9"),
		Headers: map[string]string{models.HeaderRequestID: "req-9"},
		Value:   value,
	}
	rec := toRecord(msg)
	rec.Partition = 3
	rec.Offset = 11

	back := toMessage(rec)
	assert.Equal(t, value, back.Value)
	assert.Equal(t, msg.Key, back.Key)
	assert.Equal(t, "req-9", back.RequestID())
	assert.Equal(t, int32(3), back.Partition)
	assert.Equal(t, int64(11), back.Offset)
	assert.Equal(t, []kgo.RecordHeader{{Key: models.HeaderRequestID, Value: []byte("req-9")}}, rec.Headers)
}
