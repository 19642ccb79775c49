package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultDownloadDir     = "/tmp/mediagram_files"
	DefaultYtDlpPath       = "yt-dlp"
	DefaultMaxAttempts     = 3
	DefaultRetryBackoffSec = 3
	DefaultMinPayloadBytes = 1024
	DefaultSettleDelaySec  = 2
	DefaultRetentionMin    = 10
	DefaultSweepEveryMin   = 5
	DefaultWorkers         = 4
	DefaultQueueSize       = 16
	DefaultUploadAttempts  = 2
	DefaultUploadPauseSec  = 2
	DefaultSearchLimit     = 3
	DefaultSearchMaxSec    = 1800
	DefaultBufSize         = 100
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Engine   EngineConfig   `json:"engine"`
	Download DownloadConfig `json:"download"`
	Delivery DeliveryConfig `json:"delivery"`
	Search   SearchConfig   `json:"search"`
	Sweeper  SweeperConfig  `json:"sweeper"`
	Workers  WorkersConfig  `json:"workers"`
}

type TelegramConfig struct {
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type EngineConfig struct {
	YtDlpPath string `json:"ytdlpPath"`
}

type DownloadConfig struct {
	Dir             string `json:"dir"`
	MaxAttempts     int    `json:"maxAttempts"`
	RetryBackoffSec int    `json:"retryBackoffSec"`
	MinPayloadBytes int64  `json:"minPayloadBytes"`
	SettleDelaySec  int    `json:"settleDelaySec"`
}

type DeliveryConfig struct {
	UploadAttempts int `json:"uploadAttempts"`
	UploadPauseSec int `json:"uploadPauseSec"`
}

type SearchConfig struct {
	Limit          int `json:"limit"`
	MaxDurationSec int `json:"maxDurationSec"`
}

type SweeperConfig struct {
	RetentionMin int `json:"retentionMin"`
	IntervalMin  int `json:"intervalMin"`
}

type WorkersConfig struct {
	Count     int `json:"count"`
	QueueSize int `json:"queueSize"`
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{},
		Engine: EngineConfig{
			YtDlpPath: DefaultYtDlpPath,
		},
		Download: DownloadConfig{
			Dir:             DefaultDownloadDir,
			MaxAttempts:     DefaultMaxAttempts,
			RetryBackoffSec: DefaultRetryBackoffSec,
			MinPayloadBytes: DefaultMinPayloadBytes,
			SettleDelaySec:  DefaultSettleDelaySec,
		},
		Delivery: DeliveryConfig{
			UploadAttempts: DefaultUploadAttempts,
			UploadPauseSec: DefaultUploadPauseSec,
		},
		Search: SearchConfig{
			Limit:          DefaultSearchLimit,
			MaxDurationSec: DefaultSearchMaxSec,
		},
		Sweeper: SweeperConfig{
			RetentionMin: DefaultRetentionMin,
			IntervalMin:  DefaultSweepEveryMin,
		},
		Workers: WorkersConfig{
			Count:     DefaultWorkers,
			QueueSize: DefaultQueueSize,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".mediagram")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if token := os.Getenv("MEDIAGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if token := os.Getenv("BOT_TOKEN"); token != "" && cfg.Telegram.Token == "" {
		cfg.Telegram.Token = token
	}
	if dir := os.Getenv("MEDIAGRAM_DOWNLOAD_DIR"); dir != "" {
		cfg.Download.Dir = dir
	}
	if path := os.Getenv("MEDIAGRAM_YTDLP_PATH"); path != "" {
		cfg.Engine.YtDlpPath = path
	}
	if proxy := os.Getenv("MEDIAGRAM_PROXY"); proxy != "" {
		cfg.Telegram.Proxy = proxy
	}
	if workers := os.Getenv("MEDIAGRAM_WORKERS"); workers != "" {
		if parsed, err := strconv.Atoi(workers); err == nil && parsed > 0 {
			cfg.Workers.Count = parsed
		}
	}

	if cfg.Download.Dir == "" {
		cfg.Download.Dir = DefaultDownloadDir
	}
	if cfg.Engine.YtDlpPath == "" {
		cfg.Engine.YtDlpPath = DefaultYtDlpPath
	}
	if cfg.Download.MaxAttempts <= 0 {
		cfg.Download.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Download.MinPayloadBytes <= 0 {
		cfg.Download.MinPayloadBytes = DefaultMinPayloadBytes
	}
	if cfg.Download.SettleDelaySec < 0 {
		cfg.Download.SettleDelaySec = DefaultSettleDelaySec
	}
	if cfg.Delivery.UploadAttempts <= 0 {
		cfg.Delivery.UploadAttempts = DefaultUploadAttempts
	}
	if cfg.Workers.Count <= 0 {
		cfg.Workers.Count = DefaultWorkers
	}
	if cfg.Workers.QueueSize <= 0 {
		cfg.Workers.QueueSize = DefaultQueueSize
	}
	if cfg.Search.Limit <= 0 {
		cfg.Search.Limit = DefaultSearchLimit
	}
	if cfg.Search.MaxDurationSec <= 0 {
		cfg.Search.MaxDurationSec = DefaultSearchMaxSec
	}
	if cfg.Sweeper.RetentionMin <= 0 {
		cfg.Sweeper.RetentionMin = DefaultRetentionMin
	}
	if cfg.Sweeper.IntervalMin <= 0 {
		cfg.Sweeper.IntervalMin = DefaultSweepEveryMin
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
