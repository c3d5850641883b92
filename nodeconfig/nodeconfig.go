// Package nodeconfig loads the settings a node needs to publish its locator.
//
// Settings come from an optional config file (TOML, JSON or YAML, chosen by
// extension) and are overridden by XDAO_LOCATOR_* environment variables.
//
// Example (TOML):
//
//	identity  = "node"
//	key_dir   = "/var/lib/xdao/keys"
//	endpoints = ["udp/192.0.2.10:9993", "tcp/192.0.2.10:443"]
package nodeconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"xdao.co/locator/address"
	"xdao.co/locator/endpoint"
	"xdao.co/locator/keys"
	"xdao.co/locator/locator"
)

// EnvPrefix prefixes every environment override, e.g. XDAO_LOCATOR_SUBJECT.
const EnvPrefix = "XDAO_LOCATOR"

// Config describes the locator a node creates.
type Config struct {
	// Identity names the key in the key store that signs the locator.
	Identity string `mapstructure:"identity"`
	// Role selects a derived role key of Identity; empty means the root key.
	Role   string `mapstructure:"role"`
	KeyDir string `mapstructure:"key_dir"`
	// Subject is the address the locator describes. Empty means the signer
	// itself; any other value produces a proxy-signed locator.
	Subject   string   `mapstructure:"subject"`
	Endpoints []string `mapstructure:"endpoints"`
	// Timestamp is the locator timestamp. Any value is taken as given,
	// including 0 and negatives; nil means the current time in milliseconds.
	Timestamp *int64 `mapstructure:"timestamp"`
}

var configKeys = []string{"identity", "role", "key_dir", "subject", "endpoints", "timestamp"}

// Load reads path, if not empty, applies environment overrides and validates
// the result.
func Load(path string) (Config, error) {
	var cfg Config
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, k := range configKeys {
		if err := v.BindEnv(k); err != nil {
			return cfg, fmt.Errorf("nodeconfig: bind %s: %w", k, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("nodeconfig: read %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("nodeconfig: decode: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Identity == "" {
		return errors.New("nodeconfig: identity is required")
	}
	if err := keys.CheckKeyName(c.Identity); err != nil {
		return fmt.Errorf("nodeconfig: identity: %w", err)
	}
	if c.Role != "" {
		if err := keys.CheckRole(c.Role); err != nil {
			return fmt.Errorf("nodeconfig: role: %w", err)
		}
	}
	if _, err := c.SubjectAddress(); err != nil {
		return err
	}
	_, err := c.ParseEndpoints()
	return err
}

// SubjectAddress returns the configured subject, or address.Nil when the
// signer describes itself.
func (c Config) SubjectAddress() (address.Address, error) {
	if c.Subject == "" {
		return address.Nil, nil
	}
	a, err := address.Parse(c.Subject)
	if err != nil {
		return address.Nil, fmt.Errorf("nodeconfig: subject: %w", err)
	}
	return a, nil
}

// ParseEndpoints parses the configured endpoints in order.
func (c Config) ParseEndpoints() ([]endpoint.Endpoint, error) {
	if len(c.Endpoints) > locator.MaxEndpoints {
		return nil, fmt.Errorf("nodeconfig: %d endpoints exceed the limit of %d", len(c.Endpoints), locator.MaxEndpoints)
	}
	out := make([]endpoint.Endpoint, 0, len(c.Endpoints))
	for _, s := range c.Endpoints {
		e, err := endpoint.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("nodeconfig: endpoint %q: %w", s, err)
		}
		out = append(out, e)
	}
	return out, nil
}
