package evaldb

import (
	"fmt"
	"hash/fnv"

	"github.com/discochess/lookahead/internal/fen"
)

// Strategy maps positions to shard IDs. Positions that differ only in
// move counters map to the same shard.
type Strategy interface {
	// Name identifies the strategy in the manifest.
	Name() string

	// ShardID returns a shard in [0, totalShards).
	ShardID(fen string, totalShards int) int
}

// StrategyByName returns the strategy recorded in a manifest.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case MaterialStrategy{}.Name():
		return MaterialStrategy{}, nil
	case FNVStrategy{}.Name():
		return FNVStrategy{}, nil
	default:
		return nil, fmt.Errorf("evaldb: unknown shard strategy %q", name)
	}
}

// MaterialStrategy groups positions by material signature and side to move.
// Positions from one game share few signatures, so a game analysis touches
// a small set of shards.
type MaterialStrategy struct{}

// Name returns "material".
func (MaterialStrategy) Name() string { return "material" }

// ShardID packs capped piece counts into a 19-bit signature:
// queens, rooks and minor pieces per side (3 bits each) plus the side to
// move, reduced modulo totalShards.
func (MaterialStrategy) ShardID(fenStr string, totalShards int) int {
	mat, err := fen.ParseMaterial(fenStr)
	if err != nil {
		return FNVStrategy{}.ShardID(fenStr, totalShards)
	}

	fields := []int{
		mat.WhiteQueens, mat.BlackQueens,
		mat.WhiteRooks, mat.BlackRooks,
		mat.WhiteBishops + mat.WhiteKnights, mat.BlackBishops + mat.BlackKnights,
	}
	var id uint32
	for i, n := range fields {
		id |= uint32(min(n, 7)) << (3 * i)
	}
	if side, _ := fen.SideToMove(fenStr); side == "b" {
		id |= 1 << 18
	}
	return int(id % uint32(totalShards))
}

// FNVStrategy spreads positions uniformly by FNV-1a hash of the position key.
type FNVStrategy struct{}

// Name returns "fnv32".
func (FNVStrategy) Name() string { return "fnv32" }

// ShardID hashes the normalized position key.
func (FNVStrategy) ShardID(fenStr string, totalShards int) int {
	key, err := fen.Normalize(fenStr)
	if err != nil {
		key = fenStr
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(totalShards))
}

// shardName returns the blob name of a shard before the codec extension.
func shardName(shardID int) string {
	return fmt.Sprintf("shards/%05d.jsonl", shardID)
}
