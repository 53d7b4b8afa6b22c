// Package config loads the purse engine's JSON configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"xdao.co/purse/contract"
	"xdao.co/purse/keys"
	"xdao.co/purse/purse"
	"xdao.co/purse/storage/storeconfig"
)

// Config is the engine configuration file.
//
// Example:
//
//	{
//	  "hash_type": "SHA256",
//	  "master_key_timeout": "5m",
//	  "log_level": "info",
//	  "storage": {"backends": [{"name": "localfs", "config": {"localfs-dir": "/var/lib/purse"}}]}
//	}
type Config struct {
	HashType         string              `json:"hash_type,omitempty"`
	MasterKeyTimeout string              `json:"master_key_timeout,omitempty"`
	ProductVersion   string              `json:"product_version,omitempty"`
	SignatureComment string              `json:"signature_comment,omitempty"`
	LogLevel         string              `json:"log_level,omitempty"`
	LogDevelopment   bool                `json:"log_development,omitempty"`
	Storage          *storeconfig.Config `json:"storage,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		HashType:         keys.DefaultHashType,
		MasterKeyTimeout: "5m",
		LogLevel:         "info",
	}
}

// LoadFile reads path over Default and validates the result.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch keys.NormalizeHashType(c.HashType) {
	case keys.SHA256, keys.SHA512, keys.SHA3256:
	default:
		return fmt.Errorf("config: unsupported hash_type %q", c.HashType)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.Storage != nil {
		if err := c.Storage.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Timeout parses MasterKeyTimeout. A negative duration caches the master
// password until reset; zero disables caching.
func (c Config) Timeout() (time.Duration, error) {
	if c.MasterKeyTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.MasterKeyTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid master_key_timeout %q: %w", c.MasterKeyTimeout, err)
	}
	return d, nil
}

// ContractOptions applies the signing settings: hash type, product version
// and signature comment.
func (c Config) ContractOptions() []contract.Option {
	var opts []contract.Option
	if c.HashType != "" {
		opts = append(opts, contract.WithHashType(c.HashType))
	}
	return append(opts,
		contract.WithProductVersion(c.ProductVersion),
		contract.WithComment(c.SignatureComment))
}

// PurseOptions carries ContractOptions into purses and their tokens and sets
// the master key timeout when one is configured.
func (c Config) PurseOptions() ([]purse.Option, error) {
	opts := []purse.Option{purse.WithContractOptions(c.ContractOptions()...)}
	if c.MasterKeyTimeout != "" {
		d, err := c.Timeout()
		if err != nil {
			return nil, err
		}
		opts = append(opts, purse.WithMasterKeyTimeout(d))
	}
	return opts, nil
}
