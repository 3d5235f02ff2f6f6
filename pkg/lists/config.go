package lists

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrDuplicateID indicates two config entries sharing a public ID.
	ErrDuplicateID = errors.New("lists: duplicate public list ID")

	// ErrInvalidConfig indicates a config entry missing required fields.
	ErrInvalidConfig = errors.New("lists: invalid list config")
)

// Config is the static lists catalog, typically loaded from a YAML file
// checked in next to the deployment config. It satisfies Source.
type Config struct {
	Lists []List `yaml:"lists"`

	index map[string]*List
}

// LoadConfig reads and parses a YAML lists definition file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lists: open config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig parses a YAML lists definition from a reader.
func ParseConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("lists: parse config: %w", err)
	}

	cfg.index = make(map[string]*List, len(cfg.Lists))
	for i := range cfg.Lists {
		l := &cfg.Lists[i]
		if l.PublicID == "" || l.ProviderID == "" {
			return nil, fmt.Errorf("%w: entry %d needs id and provider_id", ErrInvalidConfig, i)
		}
		if _, ok := cfg.index[l.PublicID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, l.PublicID)
		}
		cfg.index[l.PublicID] = l
	}

	return &cfg, nil
}

// Resolve implements Source.
func (c *Config) Resolve(_ context.Context, publicID string) (*List, error) {
	if publicID == "" {
		return nil, ErrEmptyPublicID
	}
	l, ok := c.index[publicID]
	if !ok || !l.Active {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// KnownIDs implements Source. IDs are returned in config order.
func (c *Config) KnownIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(c.Lists))
	for i := range c.Lists {
		if c.Lists[i].Active {
			ids = append(ids, c.Lists[i].PublicID)
		}
	}
	return ids, nil
}

// All returns every configured list, active or not.
func (c *Config) All(_ context.Context) ([]List, error) {
	out := make([]List, len(c.Lists))
	copy(out, c.Lists)
	return out, nil
}
