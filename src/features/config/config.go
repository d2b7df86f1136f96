package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Upstream Upstream `yaml:"upstream"`
	Cache    Cache    `yaml:"cache"`
	Logger   Logger   `yaml:"logger"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	Port        uint32 `yaml:"port" env:"PORT" validate:"required,max=65535"`
	PrintRoutes bool   `yaml:"show_routes"`
}

// Upstream holds the connection settings of the xiaozhishop lookup service.
type Upstream struct {
	Host  string `yaml:"host" env:"XIAOZHISHOP_HOST" validate:"required,hostname_rfc1123|ip"`
	Port  int    `yaml:"port" env:"XIAOZHISHOP_PORT" validate:"min=1,max=65535"`
	HTTPS bool   `yaml:"https" env:"XIAOZHISHOP_HTTPS"`
	// Timeouts are in seconds.
	RequestTimeout int `yaml:"request_timeout" env:"REQUEST_TIMEOUT" validate:"min=1"`
	AudioTimeout   int `yaml:"audio_timeout" validate:"min=1"`
	LyricTimeout   int `yaml:"lyric_timeout" validate:"min=1"`
	RetryMax       int `yaml:"retry_max" validate:"min=0,max=10"`
	// The upstream is a trusted private deployment, often with a self-signed certificate.
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	UserAgent          string `yaml:"user_agent" validate:"required"`
}

// Cache holds the limits of the audio and lyric caches.
type Cache struct {
	MaxSize int `yaml:"max_size" env:"CACHE_MAX_SIZE" validate:"min=1"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=text json logfmt"`
}

// Scheme returns the URL scheme used to reach the upstream.
func (u Upstream) Scheme() string {
	if u.HTTPS {
		return "https"
	}
	return "http"
}

// BaseURL returns the upstream root, e.g. http://www.xiaozhishop.xyz:5005.
func (u Upstream) BaseURL() string {
	return fmt.Sprintf("%s://%s", u.Scheme(), net.JoinHostPort(u.Host, strconv.Itoa(u.Port)))
}

func (u Upstream) LookupTimeout() time.Duration {
	return time.Duration(u.RequestTimeout) * time.Second
}

func (u Upstream) AudioFetchTimeout() time.Duration {
	return time.Duration(u.AudioTimeout) * time.Second
}

func (u Upstream) LyricFetchTimeout() time.Duration {
	return time.Duration(u.LyricTimeout) * time.Second
}

// clone returns a copy that can be modified without affecting readers of c.
func (c *Config) clone() *Config {
	cpy := *c
	return &cpy
}
