// Package config loads lookahead configuration from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/explore"
)

// ErrInvalid indicates a configuration that failed validation.
var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

// Config is the complete configuration.
type Config struct {
	Explore     Explore     `yaml:"explore"`
	Criticality Criticality `yaml:"criticality"`
	Cache       Cache       `yaml:"cache"`
	Engine      Engine      `yaml:"engine"`
	Predictor   Predictor   `yaml:"predictor"`
	Store       Store       `yaml:"store"`
	Metrics     Metrics     `yaml:"metrics"`
}

// Explore bounds each exploration.
type Explore struct {
	MaxNodes     int                `yaml:"maxNodes" validate:"min=1"`
	MaxDepth     int                `yaml:"maxDepth" validate:"min=1"`
	Budget       time.Duration      `yaml:"budget" validate:"gt=0"`
	LinesPerNode int                `yaml:"linesPerNode" validate:"min=1,max=10"`
	Depths       explore.TierDepths `yaml:"depths"`
	DepthDecay   float64            `yaml:"depthDecay" validate:"gt=0,lte=1"`
}

// Criticality configures the scorer.
type Criticality struct {
	Weights          criticality.Weights `yaml:"weights"`
	BlunderThreshold float64             `yaml:"blunderThreshold" validate:"gt=0,lte=100"`
}

// Cache configures the artifact cache tiers.
type Cache struct {
	Size int           `yaml:"size" validate:"min=1"`
	TTL  time.Duration `yaml:"ttl" validate:"gte=0"`
	// RedisURL enables a shared second tier.
	RedisURL string        `yaml:"redisURL" validate:"omitempty,url"`
	RedisTTL time.Duration `yaml:"redisTTL" validate:"gte=0"`
	// Snapshot is the blob location cache snapshots are saved to and
	// restored from: a directory, gs://bucket/prefix or s3://bucket/prefix.
	Snapshot string `yaml:"snapshot"`
	Codec    string `yaml:"codec" validate:"oneof=zstd gzip none"`
}

// Engine selects and configures the evaluation provider.
type Engine struct {
	Kind           string        `yaml:"kind" validate:"oneof=uci evaldb scripted"`
	Path           string        `yaml:"path" validate:"required_if=Kind uci"`
	Data           string        `yaml:"data" validate:"required_if=Kind evaldb"`
	Pool           int           `yaml:"pool" validate:"min=1,max=64"`
	Threads        int           `yaml:"threads" validate:"min=1"`
	HashMB         int           `yaml:"hashMB" validate:"min=1"`
	AcquireTimeout time.Duration `yaml:"acquireTimeout" validate:"gt=0"`
}

// Predictor configures human-move prediction. A zero rating disables it.
type Predictor struct {
	Rating int `yaml:"rating" validate:"omitempty,min=1100,max=1900"`
}

// Store configures the run record database. An empty path disables it.
type Store struct {
	Path string `yaml:"path"`
}

// Metrics configures the Prometheus endpoint. An empty address disables it.
type Metrics struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the built-in configuration.
func Default() Config {
	ex := explore.DefaultConfig()
	return Config{
		Explore: Explore{
			MaxNodes:     ex.MaxNodes,
			MaxDepth:     ex.MaxDepth,
			Budget:       ex.Budget,
			LinesPerNode: ex.LinesPerNode,
			Depths:       ex.TierDepths,
			DepthDecay:   ex.DepthDecay,
		},
		Criticality: Criticality{
			Weights:          criticality.DefaultWeights(),
			BlunderThreshold: criticality.DefaultBlunderThreshold,
		},
		Cache: Cache{
			Size:     10000,
			TTL:      time.Hour,
			RedisTTL: 24 * time.Hour,
			Codec:    "zstd",
		},
		Engine: Engine{
			Kind:           "uci",
			Path:           "stockfish",
			Pool:           2,
			Threads:        1,
			HashMB:         64,
			AcquireTimeout: 10 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(data) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("decoding config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and the derived component configs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Criticality.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.ExploreConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ExploreConfig returns the explorer limits.
func (c Config) ExploreConfig() explore.Config {
	return explore.Config{
		MaxNodes:         c.Explore.MaxNodes,
		MaxDepth:         c.Explore.MaxDepth,
		Budget:           c.Explore.Budget,
		LinesPerNode:     c.Explore.LinesPerNode,
		TierDepths:       c.Explore.Depths,
		DepthDecay:       c.Explore.DepthDecay,
		PredictionRating: c.Predictor.Rating,
	}
}

// Scorer builds the criticality scorer.
func (c Config) Scorer() (*criticality.Scorer, error) {
	return criticality.NewScorer(c.Criticality.Weights, c.Criticality.BlunderThreshold)
}
