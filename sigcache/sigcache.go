// Package sigcache memoizes the results of signature and range proof
// verification.
//
// A cache is a pure optimization: validation behaves identically whether a
// Cache is present, disabled or nil. Entries are keyed by a salted hash of
// every input of the verification, so a hit always means the exact same
// check already succeeded.
package sigcache

import (
	"crypto/rand"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/internal/bufferutil"
	"go.uber.org/atomic"
)

const (
	// DefaultMaxSizeMB is the default memory budget of a single cache.
	DefaultMaxSizeMB = 40

	// entrySize is the approximate memory footprint of one entry: the
	// 32-byte key, the result and the list bookkeeping of the LRU.
	entrySize = 80

	saltSize = 32
)

// Kind identifies the verification a cache memoizes.
type Kind uint8

const (
	Signature Kind = iota
	RangeProof
)

func (k Kind) String() string {
	switch k {
	case Signature:
		return "signature"
	case RangeProof:
		return "range proof"
	default:
		return "unknown"
	}
}

// Config defines the size of a cache.
type Config struct {
	// MaxSizeMB is the memory budget in megabytes. Zero disables the cache.
	MaxSizeMB uint
	// MaxEntries overrides the capacity derived from MaxSizeMB when set.
	MaxEntries uint
}

// DefaultConfig returns the configuration with the default memory budget.
func DefaultConfig() Config {
	return Config{MaxSizeMB: DefaultMaxSizeMB}
}

// Capacity returns the number of entries a cache built with c can hold.
func (c Config) Capacity() int {
	if c.MaxEntries > 0 {
		return int(c.MaxEntries)
	}
	return int(c.MaxSizeMB) * 1024 * 1024 / entrySize
}

// Key identifies one verification.
type Key = chainhash.Hash

// Stats reports the activity of a cache since its creation.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Inserts   uint64
	Evictions uint64
}

// Cache is a bounded set of verification results, safe for concurrent use.
// The least recently used entry is evicted when the cache is full. All
// methods can be called on a nil Cache, which behaves as a disabled one.
type Cache struct {
	kind     Kind
	salt     [saltSize]byte
	capacity int

	mtx sync.Mutex
	lru *simplelru.LRU

	hits      atomic.Uint64
	misses    atomic.Uint64
	inserts   atomic.Uint64
	evictions atomic.Uint64
}

// New returns an empty cache of the given kind with a fresh random salt.
func New(kind Kind, cfg Config) (*Cache, error) {
	c := &Cache{
		kind:     kind,
		capacity: cfg.Capacity(),
	}
	if _, err := rand.Read(c.salt[:]); err != nil {
		return nil, errors.Wrap(err, "failed to generate cache salt")
	}

	if c.capacity > 0 {
		lru, err := simplelru.NewLRU(c.capacity, c.onEvict)
		if err != nil {
			return nil, err
		}
		c.lru = lru
	}

	log.Debugf("Created %s cache with capacity %d", kind, c.capacity)
	return c, nil
}

func (c *Cache) onEvict(key, _ interface{}) {
	c.evictions.Inc()
	log.Tracef("Evicted %s cache entry %v", c.kind, key)
}

// Kind returns the kind of verification memoized by the cache.
func (c *Cache) Kind() Kind {
	return c.kind
}

func (c *Cache) enabled() bool {
	return c != nil && c.lru != nil
}

// Check looks key up. found is false on a miss, in which case result is
// meaningless.
func (c *Cache) Check(key Key) (result bool, found bool) {
	if !c.enabled() {
		return false, false
	}

	c.mtx.Lock()
	v, ok := c.lru.Get(key)
	c.mtx.Unlock()

	if !ok {
		c.misses.Inc()
		return false, false
	}
	c.hits.Inc()
	return v.(bool), true
}

// Record stores the result of the verification identified by key. Storing
// the same key twice is harmless.
func (c *Cache) Record(key Key, result bool) {
	if !c.enabled() {
		return
	}

	c.mtx.Lock()
	c.lru.Add(key, result)
	c.mtx.Unlock()

	c.inserts.Inc()
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	if !c.enabled() {
		return 0
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.lru.Len()
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int {
	if c == nil {
		return 0
	}
	return c.capacity
}

// Stats returns the counters of the cache.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Inserts:   c.inserts.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Purge removes every entry.
func (c *Cache) Purge() {
	if !c.enabled() {
		return
	}
	c.mtx.Lock()
	c.lru.Purge()
	c.mtx.Unlock()
}

// SignatureContext holds every input of a signature check.
type SignatureContext struct {
	TxID              chainhash.Hash
	InputIndex        uint32
	AmountCommitments [][]byte
	RedeemScript      []byte
	Signature         []byte
	PubKey            []byte
	SigHash           []byte
}

// RangeProofContext holds every input of a range proof check.
type RangeProofContext struct {
	Proof      []byte
	Commitment []byte
	AssetTag   []byte
	Script     []byte
}

// SignatureKey returns the key of the signature check described by ctx.
func (c *Cache) SignatureKey(ctx SignatureContext) Key {
	s := c.newKeySerializer()
	s.WriteSlice(ctx.TxID[:])
	s.WriteUint32(ctx.InputIndex)
	s.WriteVector(ctx.AmountCommitments)
	s.WriteVarSlice(ctx.RedeemScript)
	s.WriteVarSlice(ctx.Signature)
	s.WriteVarSlice(ctx.PubKey)
	s.WriteVarSlice(ctx.SigHash)
	return chainhash.HashH(s.Bytes())
}

// RangeProofKey returns the key of the range proof check described by ctx.
func (c *Cache) RangeProofKey(ctx RangeProofContext) Key {
	s := c.newKeySerializer()
	s.WriteVarSlice(ctx.Proof)
	s.WriteVarSlice(ctx.Commitment)
	s.WriteVarSlice(ctx.AssetTag)
	s.WriteVarSlice(ctx.Script)
	return chainhash.HashH(s.Bytes())
}

func (c *Cache) newKeySerializer() *bufferutil.Serializer {
	s := bufferutil.NewSerializer(nil)
	if c != nil {
		s.WriteSlice(c.salt[:])
	}
	return s
}

// Caches groups the signature and range proof caches owned by a validation
// subsystem.
type Caches struct {
	Signatures  *Cache
	RangeProofs *Cache
}

// NewCaches returns two independent caches, each sized by cfg.
func NewCaches(cfg Config) (*Caches, error) {
	sigs, err := New(Signature, cfg)
	if err != nil {
		return nil, err
	}
	proofs, err := New(RangeProof, cfg)
	if err != nil {
		return nil, err
	}
	return &Caches{Signatures: sigs, RangeProofs: proofs}, nil
}
