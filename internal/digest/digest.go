// Package digest computes deterministic content fingerprints for structured
// payloads. The digest tags ledger commits for integrity checks; it is not
// used for authentication and involves no secret key.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hex returns the lowercase hex SHA-256 of the canonical JSON encoding of
// payload. The payload is round-tripped through generic JSON values before
// hashing so that map keys are emitted in sorted order; two semantically
// identical payloads produce the same digest regardless of key insertion
// order.
func Hex(payload any) (string, error) {
	canonical, err := Canonical(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonical returns the canonical JSON encoding of payload: marshal, decode
// into generic values, marshal again. encoding/json sorts map keys on the
// second pass, which makes the result stable across key insertion orders.
func Canonical(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal canonical form: %w", err)
	}

	return canonical, nil
}
