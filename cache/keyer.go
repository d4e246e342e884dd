package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// KeyPrefix starts every key produced by DefaultKeyer.
const KeyPrefix = "reportops"

// Keyer derives cache keys from an operation name and its parameters.
//
// Contract:
// - Determinism: equal inputs give equal keys regardless of map order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(operation string, params any) (string, error)
}

// DefaultKeyer builds keys of the form reportops:<operation>:<digest>,
// where digest is the first 8 bytes of SHA-256 over the JSON encoding of
// params, hex encoded. Map keys are encoded in sorted order at every
// level, so parameter maps built in different orders share a key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns the cache key for operation called with params.
func (k *DefaultKeyer) Key(operation string, params any) (string, error) {
	if strings.TrimSpace(operation) == "" || strings.Contains(operation, ":") {
		return "", fmt.Errorf("%w: operation %q", ErrInvalidKey, operation)
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("cache: encode params for %s: %w", operation, err)
	}

	sum := sha256.Sum256(encoded)
	key := KeyPrefix + ":" + operation + ":" + hex.EncodeToString(sum[:8])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

var _ Keyer = (*DefaultKeyer)(nil)
