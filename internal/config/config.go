package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/gmpctl/internal/auth"
	"github.com/danmuck/gmpctl/internal/protocol/session"
)

// DefaultPort is the manager's TCP port.
const DefaultPort = 9390

var ErrInvalidConfig = errors.New("config: invalid client config")

// ClientConfig is everything gmpctl needs to reach and log into a manager.
type ClientConfig struct {
	Target    session.Target
	Transport session.Config
	Auth      auth.Env
}

type fileConfig struct {
	Network         string  `toml:"network"`
	Host            string  `toml:"host"`
	Port            int     `toml:"port"`
	SocketPath      string  `toml:"socket_path"`
	ConnectTimeout  string  `toml:"connect_timeout"`
	CommandTimeout  string  `toml:"command_timeout"`
	WriteTimeout    string  `toml:"write_timeout"`
	DisconnectGrace string  `toml:"disconnect_grace"`
	Username        string  `toml:"username"`
	Password        string  `toml:"password"`
	PasswordEnv     string  `toml:"password_env"`
	TLS             tlsFile `toml:"tls"`
}

type tlsFile struct {
	Enabled            bool   `toml:"enabled"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Target:    session.TCPTarget("127.0.0.1", DefaultPort),
		Transport: session.DefaultConfig(),
	}
}

// LoadClientConfig reads a TOML client config. Keys that are absent keep
// their defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("load client config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return ClientConfig{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	if meta.IsDefined("network") {
		cfg.Target.Network = session.Network(strings.ToLower(strings.TrimSpace(raw.Network)))
	}
	if meta.IsDefined("host") {
		cfg.Target.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Target.Port = raw.Port
	}
	if meta.IsDefined("socket_path") {
		cfg.Target.SocketPath = strings.TrimSpace(raw.SocketPath)
		if !meta.IsDefined("network") {
			cfg.Target.Network = session.NetworkUnix
		}
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Transport.ConnectTimeout},
		{"command_timeout", raw.CommandTimeout, &cfg.Transport.CommandTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Transport.WriteTimeout},
		{"disconnect_grace", raw.DisconnectGrace, &cfg.Transport.DisconnectGrace},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	cfg.Auth = auth.Env{
		Username:    raw.Username,
		Password:    raw.Password,
		PasswordEnv: strings.TrimSpace(raw.PasswordEnv),
	}

	if meta.IsDefined("tls") {
		cfg.Target.TLS = session.TLSConfig{
			Enabled:            raw.TLS.Enabled,
			CAFile:             strings.TrimSpace(raw.TLS.CAFile),
			CertFile:           strings.TrimSpace(raw.TLS.CertFile),
			KeyFile:            strings.TrimSpace(raw.TLS.KeyFile),
			ServerName:         strings.TrimSpace(raw.TLS.ServerName),
			InsecureSkipVerify: raw.TLS.InsecureSkipVerify,
		}
	}

	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func (c ClientConfig) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for name, d := range map[string]time.Duration{
		"connect_timeout":  c.Transport.ConnectTimeout,
		"command_timeout":  c.Transport.CommandTimeout,
		"write_timeout":    c.Transport.WriteTimeout,
		"disconnect_grace": c.Transport.DisconnectGrace,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
		}
	}
	if strings.TrimSpace(c.Auth.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidConfig)
	}
	return nil
}
