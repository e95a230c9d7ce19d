package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Store  StoreConfig  `mapstructure:"store"`
	Node   NodeConfig   `mapstructure:"node"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MySQLConfig configures the optional audit trail. An empty DSN disables it.
type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type NodeConfig struct {
	InstanceID       string        `mapstructure:"instance_id"`
	AdvertiseAddress string        `mapstructure:"advertise_address"`
	AnnounceInterval time.Duration `mapstructure:"announce_interval"`
	PeerTTL          time.Duration `mapstructure:"peer_ttl"`
}

type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Factor       float64       `mapstructure:"factor"`
}

func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mysql.dsn", "")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("store.path", "./db/auction-data")
	viper.SetDefault("node.instance_id", "")
	viper.SetDefault("node.advertise_address", "127.0.0.1:8080")
	viper.SetDefault("node.announce_interval", 10*time.Second)
	viper.SetDefault("node.peer_ttl", 30*time.Second)
	viper.SetDefault("retry.max_attempts", 5)
	viper.SetDefault("retry.initial_delay", time.Second)
	viper.SetDefault("retry.factor", 2.0)

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/auction-node/")

	// Environment variable support
	viper.AutomaticEnv()

	// Environment variable mappings
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("store.path", "STORE_PATH")
	viper.BindEnv("node.instance_id", "NODE_INSTANCE_ID")
	viper.BindEnv("node.advertise_address", "NODE_ADVERTISE_ADDRESS")
	viper.BindEnv("node.announce_interval", "NODE_ANNOUNCE_INTERVAL")
	viper.BindEnv("node.peer_ttl", "NODE_PEER_TTL")
	viper.BindEnv("retry.max_attempts", "RETRY_MAX_ATTEMPTS")
	viper.BindEnv("retry.initial_delay", "RETRY_INITIAL_DELAY")
	viper.BindEnv("retry.factor", "RETRY_FACTOR")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Node.PeerTTL <= config.Node.AnnounceInterval {
		return nil, fmt.Errorf("node.peer_ttl (%s) must exceed node.announce_interval (%s)",
			config.Node.PeerTTL, config.Node.AnnounceInterval)
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
