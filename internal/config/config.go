// Package config holds the CLI configuration, loadable from a TOML file
// with defaults overlaid. Flags override file values in cmd.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config stores the session parameters a user can persist instead of
// retyping: identity, hosting defaults and the local bridge address.
type Config struct {
	DisplayName     string `toml:"display_name"`      // announced to the peer on connect
	ListenHost      string `toml:"listen_host"`       // host-side bind address
	DialTimeoutSecs int    `toml:"dial_timeout_secs"` // client connect bound
	BridgeAddr      string `toml:"bridge_addr"`       // local surface bridge, "" disables
	Debug           bool   `toml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DisplayName:     "anonymous",
		ListenHost:      "0.0.0.0",
		DialTimeoutSecs: 10,
	}
}

// Load reads a TOML config file over the defaults. Unknown keys are an
// error so a typo does not silently fall back to a default.
func Load(path string) (Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	if cfg.DialTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("load config %s: dial_timeout_secs must be positive", path)
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = Default().DisplayName
	}

	return cfg, nil
}

// DialTimeout returns the connect bound as a duration.
func (c Config) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSecs) * time.Second
}
