// Package content implements the content-addressed store holding attachment
// payloads. Assets and attachments live in the document store; the bytes
// behind an attachment live here, addressed by their SHA-256 so uploads are
// idempotent and references are self-verifying.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const refPrefix = "sha256:"

// Ref describes stored content: the content-store key, the payload size and
// its hex checksum. These are the three fields an inline attachment records.
type Ref struct {
	Key      string
	Size     int64
	Checksum string
}

// Store is the contract for attachment payload storage.
type Store interface {
	// Put persists data and returns its content reference. Storing the same
	// bytes twice yields the same reference.
	Put(ctx context.Context, data []byte) (Ref, error)
	// Get retrieves the payload behind a reference key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether a reference key resolves.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the payload. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// refFor computes the reference for a payload.
func refFor(data []byte) Ref {
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	return Ref{
		Key:      refPrefix + checksum,
		Size:     int64(len(data)),
		Checksum: checksum,
	}
}

// parseKey validates a reference key and returns the raw hex digest.
func parseKey(key string) (string, error) {
	if !strings.HasPrefix(key, refPrefix) {
		return "", fmt.Errorf("invalid content reference: %s", key)
	}
	raw := strings.TrimPrefix(key, refPrefix)
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("invalid content reference digest: %w", err)
	}
	return raw, nil
}
