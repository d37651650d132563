package config

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ChartKey returns the cache key for a rendered chart. The major is hashed so
// arbitrary labels cannot break the key layout.
func (r *CacheKeyStruct) ChartKey(fingerprint, format string, minScore, maxScore int, major string) string {
	sum := sha1.Sum([]byte(major))
	return fmt.Sprintf("chart:%s:%s:%d:%d:%s", fingerprint, format, minScore, maxScore, hex.EncodeToString(sum[:8]))
}

var CacheKey = NewCacheKeyStruct()
