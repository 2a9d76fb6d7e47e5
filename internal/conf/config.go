package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"paystore/internal/constants"
	"paystore/pkg/utils"

	"github.com/golang/glog"
	"github.com/thoas/go-funk"
	"gopkg.in/yaml.v3"
)

type StoreConfig struct {
	Backend  string `yaml:"backend"`
	BoltPath string `yaml:"boltPath"`
	// SealKey is a base64 encoded 32 byte key; empty leaves values unsealed
	SealKey string `yaml:"sealKey"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NatsConfig struct {
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	SubjectPrefix  string        `yaml:"subjectPrefix"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

type CatalogConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

type PostgresConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          string `yaml:"port"`
	DB            string `yaml:"db"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	RetentionDays int    `yaml:"retentionDays"`
}

// Config is the daemon configuration. Values come from the optional YAML
// file first, environment variables override them.
type Config struct {
	AppID      string         `yaml:"appID"`
	APIAddress string         `yaml:"apiAddress"`
	Store      StoreConfig    `yaml:"store"`
	Redis      RedisConfig    `yaml:"redis"`
	Nats       NatsConfig     `yaml:"nats"`
	Catalog    CatalogConfig  `yaml:"catalog"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// Default returns the configuration used when neither file nor env set a value.
func Default() *Config {
	return &Config{
		AppID:      constants.DefaultAppID,
		APIAddress: constants.APIListenAddress,
		Store: StoreConfig{
			Backend:  constants.StoreBackendBolt,
			BoltPath: filepath.Join(constants.DataPath, constants.OrdersDbName),
		},
		Redis: RedisConfig{Host: "localhost", Port: "6379"},
		Nats: NatsConfig{
			Host:           "localhost",
			Port:           "4222",
			SubjectPrefix:  constants.DefaultSubjectPrefix,
			RequestTimeout: 2 * time.Second,
		},
		Catalog: CatalogConfig{BaseURL: "http://localhost:8081", Timeout: 10 * time.Second},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          "5432",
			DB:            "paystore",
			User:          "postgres",
			Password:      "password",
			RetentionDays: 30,
		},
	}
}

// Load reads path when given, then applies env overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		glog.Infof("loaded config from %s", path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	glog.Infof("Config appID:%s store:%s api:%s nats:%s:%s journal:%t",
		cfg.AppID, cfg.Store.Backend, cfg.APIAddress, cfg.Nats.Host, cfg.Nats.Port, cfg.Postgres.Enabled)
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.AppID = utils.GetEnvOrDefault("PAYSTORE_APP_ID", c.AppID)
	c.APIAddress = utils.GetEnvOrDefault("PAYSTORE_API_ADDR", c.APIAddress)

	c.Store.Backend = utils.GetEnvOrDefault("PAYSTORE_STORE_BACKEND", c.Store.Backend)
	c.Store.BoltPath = utils.GetEnvOrDefault("PAYSTORE_BOLT_PATH", c.Store.BoltPath)
	c.Store.SealKey = utils.GetEnvOrDefault("PAYSTORE_SEAL_KEY", c.Store.SealKey)

	c.Redis.Host = utils.GetEnvOrDefault("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = utils.GetEnvOrDefault("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = utils.GetEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = utils.GetEnvIntOrDefault("REDIS_DB", c.Redis.DB)

	c.Nats.Host = utils.GetEnvOrDefault("NATS_HOST", c.Nats.Host)
	c.Nats.Port = utils.GetEnvOrDefault("NATS_PORT", c.Nats.Port)
	c.Nats.Username = utils.GetEnvOrDefault("NATS_USERNAME", c.Nats.Username)
	c.Nats.Password = utils.GetEnvOrDefault("NATS_PASSWORD", c.Nats.Password)
	c.Nats.SubjectPrefix = utils.GetEnvOrDefault("PAYSTORE_SUBJECT_PREFIX", c.Nats.SubjectPrefix)

	c.Catalog.BaseURL = utils.GetEnvOrDefault("CATALOG_BASE_URL", c.Catalog.BaseURL)

	if v, err := strconv.ParseBool(os.Getenv("PAYSTORE_JOURNAL_ENABLED")); err == nil {
		c.Postgres.Enabled = v
	}
	c.Postgres.Host = utils.GetEnvOrDefault("POSTGRES_HOST", c.Postgres.Host)
	c.Postgres.Port = utils.GetEnvOrDefault("POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.DB = utils.GetEnvOrDefault("POSTGRES_DB", c.Postgres.DB)
	c.Postgres.User = utils.GetEnvOrDefault("POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = utils.GetEnvOrDefault("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.RetentionDays = utils.GetEnvIntOrDefault("PAYSTORE_JOURNAL_RETENTION_DAYS", c.Postgres.RetentionDays)
}

var storeBackends = []string{
	constants.StoreBackendBolt,
	constants.StoreBackendRedis,
	constants.StoreBackendMemory,
}

func (c *Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("appID must not be empty")
	}
	if !funk.ContainsString(storeBackends, c.Store.Backend) {
		return fmt.Errorf("unknown store backend %q, want one of %v", c.Store.Backend, storeBackends)
	}
	if c.Store.Backend == constants.StoreBackendBolt && c.Store.BoltPath == "" {
		return fmt.Errorf("store backend %s needs a boltPath", c.Store.Backend)
	}
	return nil
}
