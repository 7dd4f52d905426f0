package config

import (
	// Go Internal Packages
	"os"
	"strings"

	// External Packages
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
)

// Load loads the default configuration and overrides it with the config
// file at path, when given.
func Load(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(DefaultConfig), yaml.Parser()); err != nil {
		return nil, err
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}
	return k, nil
}

// LoadSecrets Loads the secret variables and overrides the config
func LoadSecrets(c Config, getenv func(string) string) Config {
	if v := getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := getenv("REDIS_URI"); v != "" {
		c.Redis.URI = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("IS_PROD_MODE"); v != "" {
		c.IsProdMode = v == "true"
	}
	return c
}

// Parse loads, unmarshals and applies secrets in one go.
func Parse(path string, getenv func(string) string) (Config, *koanf.Koanf, error) {
	k, err := Load(path)
	if err != nil {
		return Config{}, nil, err
	}
	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, nil, err
	}
	return LoadSecrets(c, getenv), k, nil
}
