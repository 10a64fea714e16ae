package cubepg

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config controls connection establishment and pool behavior. Pool knobs
// left at zero take the documented defaults in Connect, so a literal
// Config behaves like an env-loaded one.
type Config struct {
	// Host of the PostgreSQL backend.
	Host string `envconfig:"DB_HOST" default:"localhost"`

	// Port defaults to 5432.
	Port int `envconfig:"DB_PORT" default:"5432"`

	// Database is the database name.
	Database string `envconfig:"DB_NAME" default:"postgres"`

	// User is the role to authenticate as.
	User string `envconfig:"DB_USER" default:"postgres"`

	// Password may be empty for trust/peer setups.
	Password string `envconfig:"DB_PASSWORD" default:""`

	// TLS selects sslmode=require; when false the DSN uses sslmode=disable.
	TLS bool `envconfig:"DB_TLS" default:"false"`

	// MaxConns defaults to 20.
	MaxConns int32 `envconfig:"DB_POOL_MAX_CONNS" default:"20"`

	// MinConns defaults to 0.
	MinConns int32 `envconfig:"DB_POOL_MIN_CONNS" default:"0"`

	// IdleTimeout is how long a connection may sit idle before the pool
	// retires it. Defaults to 30s.
	IdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"30s"`

	// ConnectTimeout bounds dialing and the wait in Acquire. Defaults to 10s.
	ConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"10s"`

	// MaxConnLifetime defaults to 30m.
	MaxConnLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`

	// SlowQueryThreshold marks traced queries as slow. Defaults to 200ms.
	SlowQueryThreshold time.Duration `envconfig:"DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

// FromEnv loads Config from the DB_* environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("cubepg: load config from environment: %w", err)
	}
	return cfg, nil
}

// Validate reports configuration Connect cannot work with.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("cubepg: Host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("cubepg: Port %d out of range", c.Port)
	}
	if c.Database == "" {
		return errors.New("cubepg: Database is required")
	}
	if c.User == "" {
		return errors.New("cubepg: User is required")
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("cubepg: MaxConns must not be negative, got %d", c.MaxConns)
	}
	if c.MinConns < 0 {
		return fmt.Errorf("cubepg: MinConns must not be negative, got %d", c.MinConns)
	}
	if c.MaxConns > 0 && c.MinConns > c.MaxConns {
		return fmt.Errorf("cubepg: MinConns %d exceeds MaxConns %d", c.MinConns, c.MaxConns)
	}
	return nil
}

// DSN renders the URL-form connection string. It contains credentials and
// must be treated as secret material.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}

	sslmode := "disable"
	if c.TLS {
		sslmode = "require"
	}
	q := url.Values{}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()

	return u.String()
}
