package engine

import (
	"encoding/binary"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

type cacheKey [32]byte

// artifactKey fingerprints everything that influences a compiled artifact:
// the execution mode, the config knobs preprocessing applied, and the
// instrumented module bytes.
func artifactKey(cfg WasmConfig, code []byte) cacheKey {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(ModeName(cfg.Mode)))

	var knobs [12]byte
	binary.LittleEndian.PutUint32(knobs[0:], cfg.MaxMemory)
	binary.LittleEndian.PutUint32(knobs[4:], cfg.MaxStackHeight)
	var opt uint32
	if m, ok := cfg.Mode.(NativeCompiled); ok {
		opt = uint32(m.Optimization)
	}
	binary.LittleEndian.PutUint32(knobs[8:], opt)
	h.Write(knobs[:])
	h.Write(code)

	var key cacheKey
	h.Sum(key[:0])
	return key
}

// artifactCache keeps serialized backend artifacts in process memory. It is
// purely a latency optimization: a miss recompiles, a corrupt entry is
// dropped, and behavior never depends on cache state.
type artifactCache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]byte
}

func newArtifactCache() *artifactCache {
	return &artifactCache{entries: make(map[cacheKey][]byte)}
}

func (c *artifactCache) get(key cacheKey) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	art, ok := c.entries[key]
	return art, ok
}

func (c *artifactCache) put(key cacheKey, artifact []byte) {
	c.mu.Lock()
	c.entries[key] = artifact
	c.mu.Unlock()
	Logger().Debug("artifact cached", zap.Int("size", len(artifact)))
}

func (c *artifactCache) drop(key cacheKey) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
