package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config/config.yaml"

type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	// PasswordResetTTL is how long a mailed reset code stays valid.
	PasswordResetTTL time.Duration `yaml:"password_reset_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RabbitMQConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

// TaskExpiryConfig drives the sweep that reclaims abandoned reservations.
// BatchLimit 0 means every expired reservation found in a tick is processed.
type TaskExpiryConfig struct {
	Disabled    bool          `yaml:"disabled"`
	Schedule    string        `yaml:"schedule"`
	BatchLimit  int           `yaml:"batch_limit"`
	ItemTimeout time.Duration `yaml:"item_timeout"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN          string `yaml:"url"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Email    EmailConfig    `yaml:"email"`
	Tasks    struct {
		ReservationWindow time.Duration `yaml:"reservation_window"`
	} `yaml:"tasks"`
	Jobs struct {
		TaskExpiry TaskExpiryConfig `yaml:"task_expiry"`
	} `yaml:"jobs"`
}

// Load reads the YAML file (CONFIG_PATH or config/config.yaml), then applies
// .env and process environment overrides. Already-set env vars win over .env.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				_ = os.Setenv(k, v)
			}
		}
	}

	cfg := &Config{}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only deployments are allowed
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = strings.ReplaceAll(v, " ", "")
	}
	if v := os.Getenv("REDIS_PASS"); v != "" {
		cfg.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("RABBITMQ_URL")); v != "" {
		cfg.RabbitMQ.URL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "taskmarket"
	}
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = 15 * time.Minute
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.JWT.PasswordResetTTL == 0 {
		cfg.JWT.PasswordResetTTL = time.Hour
	}
	if cfg.RabbitMQ.Queue == "" {
		cfg.RabbitMQ.Queue = "task_execution_events"
	}
	if cfg.Tasks.ReservationWindow == 0 {
		cfg.Tasks.ReservationWindow = 15 * time.Minute
	}
	if cfg.Jobs.TaskExpiry.Schedule == "" {
		cfg.Jobs.TaskExpiry.Schedule = "@every 5m"
	}
	if cfg.Jobs.TaskExpiry.ItemTimeout == 0 {
		cfg.Jobs.TaskExpiry.ItemTimeout = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: database url is required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt secret is required")
	}
	if c.Tasks.ReservationWindow <= 0 {
		return fmt.Errorf("config: reservation window must be positive")
	}
	if c.Jobs.TaskExpiry.BatchLimit < 0 {
		return fmt.Errorf("config: task expiry batch limit must not be negative")
	}
	return nil
}
