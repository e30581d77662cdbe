package stream

import "fmt"

// ShardBoundary decides which records of a stream belong to the caller's
// shard.
type ShardBoundary int

const (
	// Strict keeps only the records that start at or after the start of the
	// original request. Use it when adjacent shards must not both see a
	// record that straddles their boundary.
	Strict ShardBoundary = iota
	// Overlaps keeps every record the server returns, including those that
	// start before the request but overlap it.
	Overlaps
)

// Keep reports whether a record starting at recordStart is delivered for a
// request starting at requestStart.
func (b ShardBoundary) Keep(requestStart, recordStart int64) bool {
	switch b {
	case Overlaps:
		return true
	default:
		return recordStart >= requestStart
	}
}

// String implements fmt.Stringer.
func (b ShardBoundary) String() string {
	switch b {
	case Strict:
		return "strict"
	case Overlaps:
		return "overlaps"
	default:
		return fmt.Sprintf("ShardBoundary(%d)", int(b))
	}
}

// ParseShardBoundary parses "strict" or "overlaps".
func ParseShardBoundary(name string) (ShardBoundary, error) {
	switch name {
	case "strict", "STRICT":
		return Strict, nil
	case "overlaps", "OVERLAPS":
		return Overlaps, nil
	}
	return Strict, fmt.Errorf("stream: unknown shard boundary %q, must be strict or overlaps", name)
}
