// Package config loads the ledger service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-rewards-ledger/pkg/logger"
	"github.com/JoeShih716/go-rewards-ledger/pkg/mysql"
)

const (
	// DefaultPath 沒有指定時讀取的設定檔
	DefaultPath = "config/config.yaml"

	EnvConfigPath = "LEDGER_CONFIG"
	EnvMySQLDSN   = "LEDGER_MYSQL_DSN"
	EnvLogLevel   = "LEDGER_LOG_LEVEL"
)

// 執行模型
const (
	EngineModeMutex     = "mutex"
	EngineModeSequencer = "sequencer"
)

// 儲存後端
const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	// 只有 storage.driver 為 mysql 時才驗證
	MySQL mysql.Config  `yaml:"mysql" validate:"-"`
	Log   logger.Config `yaml:"log"`
}

type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr" validate:"required"`
	MetricsAddr     string        `yaml:"metrics_addr"` // 空字串表示不開 /metrics
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

type EngineConfig struct {
	Mode      string `yaml:"mode" validate:"oneof=mutex sequencer"`
	QueueSize int    `yaml:"queue_size" validate:"required_if=Mode sequencer,gte=0"`
	// UnitsPerPoint 兌換率，每 1 點換多少餘額
	UnitsPerPoint uint64 `yaml:"units_per_point" validate:"gte=1"`
	// TransferRewardDivisor 轉帳每 N 單位回饋 1 點，0 關閉
	TransferRewardDivisor uint64 `yaml:"transfer_reward_divisor"`
}

type StorageConfig struct {
	Driver  string `yaml:"driver" validate:"oneof=memory mysql"`
	DataDir string `yaml:"data_dir" validate:"required_if=Driver memory"`
	// AutoMigrate 啟動時建立 MySQL 資料表
	AutoMigrate bool `yaml:"auto_migrate"`
}

// Load 讀取設定檔、補預設值並驗證
//
// 參數:
//
//	path: 設定檔路徑，空字串時依序使用 LEDGER_CONFIG 與 DefaultPath
//
// 回傳:
//
//	*Config: 完整的設定
//	error: 讀取、解析或驗證失敗
func Load(path string) (*Config, error) {
	// .env 不存在時忽略
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容，套用環境變數覆寫與預設值後驗證
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if dsn := os.Getenv(EnvMySQLDSN); dsn != "" {
		cfg.MySQL.URL = dsn
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Engine.Mode == "" {
		c.Engine.Mode = EngineModeMutex
	}
	if c.Engine.Mode == EngineModeSequencer && c.Engine.QueueSize == 0 {
		c.Engine.QueueSize = 1024
	}
	if c.Engine.UnitsPerPoint == 0 {
		c.Engine.UnitsPerPoint = 1
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.Storage.Driver == StorageMemory && c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	c.MySQL.ApplyDefaults()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 驗證設定，mysql 區段只在使用 MySQL 時檢查
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, err)
	}
	if c.Storage.Driver == StorageMySQL {
		if err := validate.Struct(c.MySQL); err != nil {
			errs = append(errs, fmt.Errorf("mysql: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("validate config: %w", errors.Join(errs...))
	}
	return nil
}
