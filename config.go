package sqlz

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a connection and of the entity runtime
// built on it.
type Config struct {
	// MaxTransactionAttempts caps how many times a transaction is run,
	// whatever its retry predicate says.
	MaxTransactionAttempts int `yaml:"max_transaction_attempts"`

	// GenerateBatchSize is the page size of generators created without an
	// explicit batch size.
	GenerateBatchSize int `yaml:"generate_batch_size"`

	// DiscriminatorColumn is the default column storing the concrete type
	// name of single-table inheritance hierarchies.
	DiscriminatorColumn string `yaml:"discriminator_column"`

	// Logger receives debug and warning messages.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxTransactionAttempts: 3,
		GenerateBatchSize:      100,
		DiscriminatorColumn:    "class",
		Logger:                 slog.Default(),
	}
}

func (c *Config) validate() {
	d := DefaultConfig()
	if c.MaxTransactionAttempts < 1 {
		c.MaxTransactionAttempts = d.MaxTransactionAttempts
	}
	if c.MaxTransactionAttempts > 100 {
		c.MaxTransactionAttempts = 100
	}
	if c.GenerateBatchSize < 1 {
		c.GenerateBatchSize = d.GenerateBatchSize
	}
	if c.DiscriminatorColumn == "" {
		c.DiscriminatorColumn = d.DiscriminatorColumn
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
}

// LoadConfig reads a YAML configuration. Missing keys keep their default
// values.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.validate()
	return cfg, nil
}
