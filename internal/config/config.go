package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"luckyroll/internal/address"

	"github.com/BurntSushi/toml"
)

// Config is the runtime configuration of the lottery service.
type Config struct {
	ListenAddress string       `toml:"ListenAddress"`
	DataDir       string       `toml:"DataDir"`
	Owner         string       `toml:"Owner"`
	Verbose       bool         `toml:"Verbose"`
	LogFile       string       `toml:"LogFile"`
	Outbox        OutboxConfig `toml:"Outbox"`
	Round         RoundConfig  `toml:"Round"`
}

// OutboxConfig bounds the queue of randomness requests awaiting the relay.
type OutboxConfig struct {
	Limit int `toml:"Limit"`
}

// RoundConfig opens the first round when the service starts on an empty
// data directory.
type RoundConfig struct {
	Oracle    string `toml:"Oracle"`
	TimeStart string `toml:"TimeStart"`
	TimeEnd   string `toml:"TimeEnd"`
}

const envPrefix = "LUCKYROLL_"

func defaults() *Config {
	now := time.Now().UTC().Truncate(time.Hour)
	return &Config{
		ListenAddress: ":8080",
		DataDir:       "./luckyroll-data",
		Outbox:        OutboxConfig{Limit: 10000},
		Round: RoundConfig{
			TimeStart: now.Format(time.RFC3339),
			TimeEnd:   now.Add(24 * time.Hour).Format(time.RFC3339),
		},
	}
}

// Load loads the configuration from the given path, writing a default file
// first if none exists. LUCKYROLL_* environment variables override the file.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := WriteDefault(path); err != nil {
			return nil, err
		}
	}

	cfg := defaults()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown keys: %v", path, undecoded)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault writes a default configuration file to path.
func WriteDefault(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(defaults())
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LISTEN":     &c.ListenAddress,
		"DATA_DIR":   &c.DataDir,
		"OWNER":      &c.Owner,
		"LOG_FILE":   &c.LogFile,
		"ORACLE":     &c.Round.Oracle,
		"TIME_START": &c.Round.TimeStart,
		"TIME_END":   &c.Round.TimeEnd,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sVERBOSE: %w", envPrefix, err)
		}
		c.Verbose = b
	}
	if v, ok := os.LookupEnv(envPrefix + "OUTBOX_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sOUTBOX_LIMIT: %w", envPrefix, err)
		}
		c.Outbox.Limit = n
	}
	return nil
}

// Validate checks the fields the service cannot start without.
func (c *Config) Validate(v address.Validator) error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errors.New("ListenAddress is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("DataDir is required")
	}
	if _, err := v.Validate(c.Owner); err != nil {
		return fmt.Errorf("Owner: %w", err)
	}
	if _, err := v.Validate(c.Round.Oracle); err != nil {
		return fmt.Errorf("Round.Oracle: %w", err)
	}
	start, end, err := c.Round.Window()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return errors.New("Round.TimeEnd is before Round.TimeStart")
	}
	return nil
}

// Window parses the configured round window.
func (r RoundConfig) Window() (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, r.TimeStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("Round.TimeStart: %w", err)
	}
	end, err := time.Parse(time.RFC3339, r.TimeEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("Round.TimeEnd: %w", err)
	}
	return start, end, nil
}
