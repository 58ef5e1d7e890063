package evaldb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/discochess/lookahead/internal/blob"
)

// ManifestName is the blob name of the database manifest.
const ManifestName = "manifest.json"

// Manifest describes a built evaluation database.
type Manifest struct {
	Version     int       `json:"version"`
	TotalShards int       `json:"total_shards"`
	Strategy    string    `json:"strategy"`
	RecordCount int64     `json:"record_count"`
	ShardCount  int       `json:"shard_count"` // non-empty shards
	BuiltAt     time.Time `json:"built_at"`
	Compression string    `json:"compression"`
}

// WriteManifest stores m in s.
func WriteManifest(ctx context.Context, s blob.Store, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := s.Write(ctx, ManifestName, data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest from s.
func ReadManifest(ctx context.Context, s blob.Store) (*Manifest, error) {
	data, err := s.Read(ctx, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.TotalShards <= 0 {
		return nil, fmt.Errorf("evaldb: manifest has %d shards", m.TotalShards)
	}
	return &m, nil
}
