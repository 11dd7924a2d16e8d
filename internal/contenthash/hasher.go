// Package contenthash computes SHA-256 digests of document bytes.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
)

// Hasher hashes files and remembers results while size and mtime are unchanged.
type Hasher struct {
	memo *cache.Cache
}

// New creates a hasher whose memo entries expire after ttl.
func New(ttl time.Duration) *Hasher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Hasher{memo: cache.New(ttl, 2*ttl)}
}

// Sum returns the hex SHA-256 of the file at path.
func (h *Hasher) Sum(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if v, ok := h.memo.Get(key); ok {
		return v.(string), nil
	}

	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	digest := sha256.New()
	if _, err := io.Copy(digest, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	sum := hex.EncodeToString(digest.Sum(nil))
	h.memo.Set(key, sum, cache.DefaultExpiration)
	return sum, nil
}

// Cached returns how many digests are currently memoized.
func (h *Hasher) Cached() int {
	return h.memo.ItemCount()
}
