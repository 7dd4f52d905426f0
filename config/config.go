package config

import (
	// Go Internal Packages
	"fmt"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"
)

// ProfileTest keeps stores in memory, embeds redis and disables jobs.
const ProfileTest = "test"

var DefaultConfig = []byte(`
application: "pix-stream"

logger:
  level: "debug"

is_prod_mode: false
profile: "production"

admin:
  address: ":9090"

mongo:
  uri: "mongodb://localhost:27017"
  database: "pix"

redis:
  uri: "localhost:6379"
  password: ""

kafka:
  brokers:
    - "localhost:9092"
  consume: true
  consumer_prefix: "pix-stream"
  records_per_poll: 500
  max_redeliveries: 3

gateway:
  base_url: "http://localhost:8081"
  profile_url: "http://localhost:8082"
  timeout: "5s"

hub:
  processor: "default"

warning:
  duplicate_window: "30m"
  income_ratio: "0.5"
  blocked_documents: []
  blocked_ispbs: []

jobs:
  sync:
    cron: "*/5 * * * *"
    lease_key: "pix-stream:jobs:sync"
    lease_timeout: "60s"
    refresh_interval: "20s"
  update:
    cron: "*/10 * * * *"
    lease_key: "pix-stream:jobs:update"
    lease_timeout: "60s"
    refresh_interval: "20s"
    stale_after: "15m"
`)

type Config struct {
	Application string  `koanf:"application"`
	Logger      Logger  `koanf:"logger"`
	IsProdMode  bool    `koanf:"is_prod_mode"`
	Profile     string  `koanf:"profile"`
	Admin       Admin   `koanf:"admin"`
	Mongo       Mongo   `koanf:"mongo"`
	Redis       Redis   `koanf:"redis"`
	Kafka       Kafka   `koanf:"kafka"`
	Gateway     Gateway `koanf:"gateway"`
	Hub         Hub     `koanf:"hub"`
	Warning     Warning `koanf:"warning"`
	Jobs        Jobs    `koanf:"jobs"`
}

type Logger struct {
	Level string `koanf:"level"`
}

type Admin struct {
	Address string `koanf:"address"`
}

type Mongo struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type Redis struct {
	URI      string `koanf:"uri"`
	Password string `koanf:"password"`
}

type Kafka struct {
	Brokers         []string `koanf:"brokers"`
	Consume         bool     `koanf:"consume"`
	ConsumerPrefix  string   `koanf:"consumer_prefix"`
	RecordsPerPoll  int      `koanf:"records_per_poll"`
	MaxRedeliveries int      `koanf:"max_redeliveries"`
}

type Gateway struct {
	BaseURL    string        `koanf:"base_url"`
	ProfileURL string        `koanf:"profile_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

// Hub selects which business processor consumes the hub topics.
type Hub struct {
	Processor string `koanf:"processor"`
}

type Warning struct {
	DuplicateWindow  time.Duration `koanf:"duplicate_window"`
	IncomeRatio      string        `koanf:"income_ratio"`
	BlockedDocuments []string      `koanf:"blocked_documents"`
	BlockedISPBs     []string      `koanf:"blocked_ispbs"`
}

type Jobs struct {
	Sync   Job `koanf:"sync"`
	Update Job `koanf:"update"`
}

type Job struct {
	Cron            string        `koanf:"cron"`
	LeaseKey        string        `koanf:"lease_key"`
	LeaseTimeout    time.Duration `koanf:"lease_timeout"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	StaleAfter      time.Duration `koanf:"stale_after"`
}

func (c *Config) IsTestProfile() bool {
	return c.Profile == ProfileTest
}

// Validate validates the configuration
func (c *Config) Validate() error {
	ve := errors.ValidationErrs()

	if c.Application == "" {
		ve.Add("application", "cannot be empty")
	}
	if c.Logger.Level == "" {
		ve.Add("logger.level", "cannot be empty")
	}
	if !c.IsTestProfile() {
		if c.Mongo.URI == "" {
			ve.Add("mongo.uri", "cannot be empty")
		}
		if c.Mongo.Database == "" {
			ve.Add("mongo.database", "cannot be empty")
		}
		if c.Redis.URI == "" {
			ve.Add("redis.uri", "cannot be empty")
		}
	}
	if len(c.Kafka.Brokers) == 0 {
		ve.Add("kafka.brokers", "cannot be empty")
	}
	if c.Kafka.RecordsPerPoll <= 0 {
		ve.Add("kafka.records_per_poll", "must be positive")
	}
	if c.Kafka.MaxRedeliveries < 0 {
		ve.Add("kafka.max_redeliveries", "cannot be negative")
	}
	if c.Gateway.Timeout <= 0 {
		ve.Add("gateway.timeout", "must be positive")
	}
	if c.Hub.Processor == "" {
		ve.Add("hub.processor", "cannot be empty")
	}
	if c.Warning.DuplicateWindow <= 0 {
		ve.Add("warning.duplicate_window", "must be positive")
	}
	if c.Warning.IncomeRatio == "" {
		ve.Add("warning.income_ratio", "cannot be empty")
	}
	c.Jobs.Sync.validate(ve, "jobs.sync")
	c.Jobs.Update.validate(ve, "jobs.update")

	return ve.Err()
}

func (j Job) validate(ve *errors.ValidationErrors, prefix string) {
	if j.Cron == "" {
		ve.Add(prefix+".cron", "cannot be empty")
	}
	if j.LeaseKey == "" {
		ve.Add(prefix+".lease_key", "cannot be empty")
	}
	if j.LeaseTimeout <= 0 {
		ve.Add(prefix+".lease_timeout", "must be positive")
	}
	if j.RefreshInterval <= 0 {
		ve.Add(prefix+".refresh_interval", "must be positive")
	}
	if j.RefreshInterval >= j.LeaseTimeout {
		ve.Add(prefix+".refresh_interval", fmt.Sprintf("must be shorter than lease_timeout (%s)", j.LeaseTimeout))
	}
}

// ConsumerGroup names the consumer group of one observer.
func (k Kafka) ConsumerGroup(name string) string {
	if k.ConsumerPrefix == "" {
		return name
	}
	return k.ConsumerPrefix + "." + name
}

// ConsumerConfig builds the per-observer consumer settings.
func (k Kafka) ConsumerConfig(group string, topics ...string) *models.ConsumerConfig {
	return &models.ConsumerConfig{
		Brokers:         k.Brokers,
		Name:            k.ConsumerGroup(group),
		Topics:          topics,
		RecordsPerPoll:  k.RecordsPerPoll,
		MaxRedeliveries: k.MaxRedeliveries,
	}
}
