package main

import (
	"fmt"
	"os"

	"vexoj/internal/common/cache"
	"vexoj/internal/common/storage"
	"vexoj/internal/judge"
	"vexoj/internal/worker"
	"vexoj/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxBoxes      = 8
	defaultIsolateBinary = "isolate"
	defaultPackRoot      = "/var/cache/vexoj/packs"
)

// SandboxConfig holds isolate settings.
type SandboxConfig struct {
	Binary   string `yaml:"binary"`
	MaxBoxes int    `yaml:"maxBoxes"`
}

// DataPackConfig holds test data cache settings.
type DataPackConfig struct {
	RootDir string `yaml:"rootDir"`
}

// LanguageConfig holds language definitions. An empty list falls back
// to the built-in set.
type LanguageConfig struct {
	Languages []judge.Language `yaml:"languages"`
}

// AppConfig holds judge-worker config.
type AppConfig struct {
	Logger   logger.Config       `yaml:"logger"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Sandbox  SandboxConfig       `yaml:"sandbox"`
	DataPack DataPackConfig      `yaml:"dataPack"`
	Worker   worker.Config       `yaml:"worker"`
	Language LanguageConfig      `yaml:"language"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.MinIO.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.MinIO.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	applyRedisDefaults(&cfg.Redis)
	if cfg.Sandbox.Binary == "" {
		cfg.Sandbox.Binary = defaultIsolateBinary
	}
	if cfg.Sandbox.MaxBoxes <= 0 {
		cfg.Sandbox.MaxBoxes = defaultMaxBoxes
	}
	if cfg.DataPack.RootDir == "" {
		cfg.DataPack.RootDir = defaultPackRoot
	}
	if len(cfg.Language.Languages) == 0 {
		cfg.Language.Languages = judge.DefaultLanguages()
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
}
