// Package config 載入服務的 YAML 設定並補上預設值。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// 儲存後端
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	MySQL   mysql.Config  `yaml:"mysql"`
	Engine  EngineConfig  `yaml:"engine"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig 選擇儲存後端 (取代原本寫死在程式裡的 ledger type 常數)
type StorageConfig struct {
	Driver         string        `yaml:"driver"`
	WALPath        string        `yaml:"wal_path"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// EngineConfig 原子單元遇到 contention 時的重試預算
type EngineConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load 讀取設定檔並補全預設值
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容並補全預設值
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":50051"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Storage.WALPath == "" {
		c.Storage.WALPath = "wal.log"
	}
	if c.Storage.AcquireTimeout == 0 {
		c.Storage.AcquireTimeout = 2 * time.Second
	}

	// 補全 MySQL 預設配置 (如果 yaml 沒寫)
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}

	if c.Engine.MaxRetries == 0 {
		c.Engine.MaxRetries = 3
	}
	if c.Engine.RetryBackoff == 0 {
		c.Engine.RetryBackoff = 20 * time.Millisecond
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must be >= 0, got %d", c.Engine.MaxRetries)
	}
	return nil
}
