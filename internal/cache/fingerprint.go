package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Fingerprint produces a deterministic key for a request value: msgpack
// encoding with sorted map keys, hashed with sha256. Sorted keys matter —
// priors and bounds are maps, and Go map iteration order would otherwise
// make the same request hash differently between calls.
func Fingerprint(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("fingerprint encode: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
