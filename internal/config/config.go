package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds client and server configuration values.
type Config struct {
	// Endpoint the client connects to.
	Host        string        `mapstructure:"host" yaml:"host"`
	Port        int           `mapstructure:"port" yaml:"port"`
	Path        string        `mapstructure:"path" yaml:"path"`
	Name        string        `mapstructure:"name" yaml:"name"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`

	// Server side.
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MessagesPerMinute int           `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`
	SeedRooms         []string      `mapstructure:"seed_rooms" yaml:"seed_rooms"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Host:              "localhost",
		Port:              8080,
		Path:              "demo_chatroom",
		DialTimeout:       10 * time.Second,
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxMessageBytes:   1 << 16,
		MessagesPerMinute: 120,
		SeedRooms:         []string{"lobby"},
		LogLevel:          "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.Path != "" {
		c.Path = other.Path
	}
	if other.Name != "" {
		c.Name = other.Name
	}
	if other.DialTimeout != 0 {
		c.DialTimeout = other.DialTimeout
	}
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.MessagesPerMinute != 0 {
		c.MessagesPerMinute = other.MessagesPerMinute
	}
	if len(other.SeedRooms) > 0 {
		c.SeedRooms = other.SeedRooms
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// RoutePath returns the websocket route with a leading slash.
func (c Config) RoutePath() string {
	return "/" + strings.TrimPrefix(c.Path, "/")
}

// URL returns the websocket endpoint the client dials.
func (c Config) URL() string {
	return "ws://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + c.RoutePath()
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if strings.Trim(c.Path, "/") == "" {
		return fmt.Errorf("path must not be empty")
	}
	if c.MessagesPerMinute < 0 {
		return fmt.Errorf("messages_per_minute must not be negative")
	}
	return nil
}
