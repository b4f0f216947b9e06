package main

import (
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is crowd's on-disk configuration, loaded from a YAML file named
// by --config and overridable per-field by command-line flags. Its field
// set mirrors the engine's configuration surface: port/bindaddr or a Unix
// socket, worker concurrency, idle timeout, TLS, the response and
// WebSocket size thresholds, and the signal set that triggers shutdown.
type Config struct {
	Addr            string        `yaml:"addr"`
	LocalSocketPath string        `yaml:"local_socket_path"`
	Workers         int           `yaml:"workers"`
	Multithreaded   bool          `yaml:"multithreaded"` // Workers = runtime.NumCPU() when true
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	StaticDir       string        `yaml:"static_dir"`
	Metrics         MetricsConfig `yaml:"metrics"`
	LogLevel        string        `yaml:"log_level"`
	ServerName      string        `yaml:"server_name"`

	StreamThreshold     int   `yaml:"stream_threshold"`
	WebSocketMaxPayload int64 `yaml:"websocket_max_payload"`

	UseCompression string `yaml:"use_compression"` // any non-empty value enables compress.Wrap; the codec follows each request's Accept-Encoding

	SSLFile      string `yaml:"ssl_file"`      // PEM certificate
	SSLChainfile string `yaml:"ssl_chainfile"` // PEM private key

	// Signals lists the signal numbers (as in syscall.SIGINT etc.) that
	// trigger graceful shutdown. Empty means the engine default
	// (SIGINT, SIGTERM).
	Signals []int `yaml:"signals"`

	// TickSeconds, if non-zero, makes crowd log a heartbeat line every
	// TickSeconds seconds via App.Tick, demonstrating the periodic
	// callback hook.
	TickSeconds int `yaml:"tick_seconds"`
}

// MetricsConfig controls the optional Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func defaultConfig() Config {
	workers := 8
	return Config{
		Addr:                ":8080",
		Workers:             workers,
		IdleTimeout:         5 * time.Second,
		MaxHeaderBytes:      80 * 1024,
		StaticDir:           "./public",
		LogLevel:            "info",
		ServerName:          "Crow",
		StreamThreshold:     1 << 20,
		WebSocketMaxPayload: 0,
		Metrics:             MetricsConfig{Enabled: false, Addr: ":9090"},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Multithreaded {
		cfg.Workers = runtime.NumCPU()
	}
	return cfg, nil
}
