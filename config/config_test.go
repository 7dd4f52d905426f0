package config

import (
	// Go Internal Packages
	"os"
	"path/filepath"
	"testing"
	"time"

	// External Packages
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestDefaultConfigIsValid(t *testing.T) {
	c, _, err := Parse("", noEnv)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "pix-stream", c.Application)
	assert.Equal(t, 30*time.Minute, c.Warning.DuplicateWindow)
	assert.Equal(t, 60*time.Second, c.Jobs.Sync.LeaseTimeout)
	assert.Equal(t, 20*time.Second, c.Jobs.Sync.RefreshInterval)
	assert.Equal(t, 3, c.Kafka.MaxRedeliveries)
	assert.Equal(t, 5*time.Second, c.Gateway.Timeout)
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := []byte("profile: test\nkafka:\n  max_redeliveries: 7\njobs:\n  sync:\n    refresh_interval: 5s\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	c, _, err := Parse(path, noEnv)
	require.NoError(t, err)
	assert.True(t, c.IsTestProfile())
	assert.Equal(t, 7, c.Kafka.MaxRedeliveries)
	assert.Equal(t, 5*time.Second, c.Jobs.Sync.RefreshInterval)
	assert.Equal(t, "pix-stream:jobs:sync", c.Jobs.Sync.LeaseKey)
}

func TestSecretsOverrideConfig(t *testing.T) {
	env := map[string]string{
		"MONGO_URI":     "mongodb://db:27017",
		"KAFKA_BROKERS": "k1:9092,k2:9092",
		"IS_PROD_MODE":  "true",
	}
	c, _, err := Parse("", func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", c.Mongo.URI)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.IsProdMode)
}

func TestRefreshIntervalMustBeShorterThanLeaseTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		refresh time.Duration
		wantErr bool
	}{
		{"shorter", 60 * time.Second, 20 * time.Second, false},
		{"equal", 60 * time.Second, 60 * time.Second, true},
		{"longer", 60 * time.Second, 90 * time.Second, true},
		{"zero refresh", 60 * time.Second, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, err := Parse("", noEnv)
			require.NoError(t, err)
			c.Jobs.Update.LeaseTimeout = tt.timeout
			c.Jobs.Update.RefreshInterval = tt.refresh

			err = c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "jobs.update.refresh_interval")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	c := Config{}
	err := c.Validate()
	require.Error(t, err)
	for _, field := range []string{"application", "logger.level", "mongo.uri", "redis.uri", "kafka.brokers", "gateway.timeout", "jobs.sync.cron"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestTestProfileNeedsNoExternalStores(t *testing.T) {
	c, _, err := Parse("", noEnv)
	require.NoError(t, err)
	require.True(t, c.IsTestProfile())
	c.Mongo.URI, c.Redis.URI = "", ""
	require.NoError(t, c.Validate())

	c.Profile = "prod"
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.uri")
}

func TestConsumerGroupPrefix(t *testing.T) {
	k := Kafka{ConsumerPrefix: "pix-stream", Brokers: []string{"b:9092"}, RecordsPerPoll: 10, MaxRedeliveries: 2}
	cc := k.ConsumerConfig("payment.confirm", "pix.payment.confirm")
	assert.Equal(t, "pix-stream.payment.confirm", cc.Name)
	assert.Equal(t, []string{"pix.payment.confirm"}, cc.Topics)
	assert.Equal(t, 2, cc.MaxRedeliveries)
}
