package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "DICEBRAWL_CONFIG"

// DefaultPath is read when EnvPath is unset.
const DefaultPath = "config/server.toml"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Engine    EngineConfig    `toml:"engine"`
	Scripting ScriptingConfig `toml:"scripting"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	BindAddress    string        `toml:"bind_address"`
	WSPath         string        `toml:"ws_path"`
	OutQueueSize   int           `toml:"out_queue_size"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
	ReadTimeout    time.Duration `toml:"read_timeout"` // 0 disables the read deadline
	MaxMessageSize int64         `toml:"max_message_size"`
}

type EngineConfig struct {
	MaxIterations int    `toml:"max_iterations"`
	LogCapacity   int    `toml:"log_capacity"`
	Seed          int64  `toml:"seed"`        // 0 seeds from the clock
	RosterFile    string `toml:"roster_file"` // empty uses the built-in roster
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DatabaseConfig configures the combat journal. An empty DSN disables it.
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path returns the config path from the environment, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load overlays the TOML file at path on the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.Server.StartTime = time.Now().Unix()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Network.BindAddress == "" {
		return errors.New("network.bind_address is empty")
	}
	if c.Network.WSPath == "" || c.Network.WSPath[0] != '/' {
		return fmt.Errorf("network.ws_path %q must start with /", c.Network.WSPath)
	}
	if c.Network.OutQueueSize <= 0 {
		return fmt.Errorf("network.out_queue_size must be positive, got %d", c.Network.OutQueueSize)
	}
	if c.Engine.MaxIterations < 0 || c.Engine.LogCapacity < 0 {
		return errors.New("engine limits must not be negative")
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "dicebrawl",
		},
		Network: NetworkConfig{
			BindAddress:    "127.0.0.1:9000",
			WSPath:         "/ws",
			OutQueueSize:   64,
			WriteTimeout:   10 * time.Second,
			ReadTimeout:    0,
			MaxMessageSize: 64 * 1024,
		},
		Engine: EngineConfig{
			MaxIterations: 64,
			LogCapacity:   10,
		},
		Scripting: ScriptingConfig{
			Enabled: false,
			Dir:     "scripts",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
