// Package config loads relay and terminal settings from flags, the
// environment (LCDRELAY_*) and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

// EnvPrefix is prepended to every environment key
const EnvPrefix = "LCDRELAY"

var (
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
	ErrInvalidTransport = errors.New("transport must be tcp or ws")
	ErrEmptyRelay       = errors.New("relay address is required")
	ErrInvalidInterval  = errors.New("tick, settle and hold must be positive")
)

// Relay holds the relay server configuration
type Relay struct {
	Port             int           `mapstructure:"port"`
	HTTPAddr         string        `mapstructure:"http_addr"`         // empty disables the HTTP API
	Journal          string        `mapstructure:"journal"`           // empty disables the session journal
	JournalRetention time.Duration `mapstructure:"journal_retention"` // zero keeps events forever
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`     // zero means writes never time out
	LogLevel         string        `mapstructure:"log_level"`
	LogConsole       bool          `mapstructure:"log_console"`
}

// Terminal holds the terminal configuration
type Terminal struct {
	Relay        string        `mapstructure:"relay"`
	Transport    string        `mapstructure:"transport"`
	QuickReplies []string      `mapstructure:"quick_replies"`
	LogFile      string        `mapstructure:"log_file"`
	LogLevel     string        `mapstructure:"log_level"`
	Tick         time.Duration `mapstructure:"tick"`
	Settle       time.Duration `mapstructure:"settle"`
	Hold         time.Duration `mapstructure:"hold"`
}

// New creates a viper instance bound to the environment and, if path is
// non-empty, reads that config file.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	return v, nil
}

// BindFlags binds every flag in fs to the viper key of the same name with
// dashes turned into underscores, so --http-addr sets http_addr. Flags the
// user did not set do not override the environment or the config file.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Name == "config" {
			return
		}
		if bindErr := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); bindErr != nil {
			err = fmt.Errorf("failed to bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// SetRelayDefaults registers the relay defaults
func SetRelayDefaults(v *viper.Viper) {
	v.SetDefault("port", 5555)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("journal", "")
	v.SetDefault("journal_retention", time.Duration(0))
	v.SetDefault("write_timeout", time.Duration(0))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_console", true)
}

// SetTerminalDefaults registers the terminal defaults
func SetTerminalDefaults(v *viper.Viper) {
	v.SetDefault("relay", "127.0.0.1:5555")
	v.SetDefault("transport", "tcp")
	v.SetDefault("quick_replies", terminal.DefaultQuickReplies())
	v.SetDefault("log_file", "terminal.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("tick", terminal.DefaultTick)
	v.SetDefault("settle", terminal.DefaultSettle)
	v.SetDefault("hold", 150*time.Millisecond)
}

// LoadRelay decodes and validates the relay configuration
func LoadRelay(v *viper.Viper) (*Relay, error) {
	SetRelayDefaults(v)

	var cfg Relay
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode relay config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the relay configuration
func (c *Relay) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout must not be negative: %s", c.WriteTimeout)
	}
	if c.JournalRetention < 0 {
		return fmt.Errorf("journal_retention must not be negative: %s", c.JournalRetention)
	}
	return nil
}

// LoadTerminal decodes and validates the terminal configuration
func LoadTerminal(v *viper.Viper) (*Terminal, error) {
	SetTerminalDefaults(v)

	var cfg Terminal
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode terminal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the terminal configuration
func (c *Terminal) Validate() error {
	if strings.TrimSpace(c.Relay) == "" {
		return ErrEmptyRelay
	}
	switch c.Transport {
	case "tcp", "ws":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport)
	}
	if c.Tick <= 0 || c.Settle <= 0 || c.Hold <= 0 {
		return ErrInvalidInterval
	}
	return nil
}
