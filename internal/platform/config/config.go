package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は環境変数による上書きに使う接頭辞です。
const EnvPrefix = "WORKLOG_"

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Ops      OpsConfig      `yaml:"ops" envPrefix:"OPS_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOGGING_"`
	NATS     NATSConfig     `yaml:"nats" envPrefix:"NATS_"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// OpsConfig はヘルスチェックとメトリクスを提供する HTTP サーバーの設定です。
// ListenAddr が空の場合は起動しません。
type OpsConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"HOST"`
	Port               int           `yaml:"port" env:"PORT"`
	User               string        `yaml:"user" env:"USER"`
	Password           string        `yaml:"password" env:"PASSWORD"`
	Name               string        `yaml:"name" env:"NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// NATSConfig は承認完了イベントの発行先です。Enabled が false の場合は発行しません。
type NATSConfig struct {
	Enabled           bool          `yaml:"enabled" env:"ENABLED"`
	URL               string        `yaml:"url" env:"URL"`
	SubjectPrefix     string        `yaml:"subject_prefix" env:"SUBJECT_PREFIX"`
	ConnectTimeout    time.Duration `yaml:"-"`
	ConnectTimeoutRaw string        `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

// LoadDotEnv は存在する .env ファイルを読み込みます。既に設定済みの環境変数は上書きしません。
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Logging.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.NATS.validateAndNormalize(); err != nil {
		return err
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (l *LoggingConfig) validateAndNormalize() error {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}

	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	switch l.Format {
	case "":
		l.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("config: logging.format must be json or text, got %q", l.Format)
	}
	return nil
}

func (n *NATSConfig) validateAndNormalize() error {
	if n.SubjectPrefix == "" {
		n.SubjectPrefix = "worklog"
	}

	timeout, err := parseDurationAllowEmpty(n.ConnectTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: nats.connect_timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	n.ConnectTimeout = timeout

	if n.Enabled && n.URL == "" {
		return fmt.Errorf("config: nats.url must be set when nats.enabled is true")
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報は URL エンコードされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
