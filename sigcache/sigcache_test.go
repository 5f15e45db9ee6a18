package sigcache

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

type mockVerifier struct {
	valid      bool
	sigCalls   atomic.Uint64
	proofCalls atomic.Uint64
}

func (m *mockVerifier) VerifySignature(sig, pubKey, hash []byte) bool {
	m.sigCalls.Inc()
	return m.valid
}

func (m *mockVerifier) VerifyRangeProof(proof, commitment, assetTag, script []byte) bool {
	m.proofCalls.Inc()
	return m.valid
}

func testSignatureContext(i int) SignatureContext {
	return SignatureContext{
		TxID:              chainhash.HashH([]byte(fmt.Sprintf("tx %d", i))),
		InputIndex:        uint32(i),
		AmountCommitments: [][]byte{bytes.Repeat([]byte{0x08}, 33)},
		RedeemScript:      []byte{0x51},
		Signature:         []byte{0x30, byte(i)},
		PubKey:            bytes.Repeat([]byte{0x02}, 33),
		SigHash:           bytes.Repeat([]byte{byte(i)}, 32),
	}
}

func testRangeProofContext(i int) RangeProofContext {
	return RangeProofContext{
		Proof:      []byte{0x60, byte(i), byte(i >> 8)},
		Commitment: bytes.Repeat([]byte{0x09}, 33),
		AssetTag:   bytes.Repeat([]byte{0x0a}, 33),
		Script:     []byte{0x00, 0x14},
	}
}

func TestDefaultCapacity(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint(40), cfg.MaxSizeMB)
	assert.Equal(t, 524288, cfg.Capacity())
	assert.Equal(t, 16, Config{MaxSizeMB: 40, MaxEntries: 16}.Capacity())
	assert.Equal(t, 0, Config{}.Capacity())
}

func TestCheckAndRecord(t *testing.T) {
	cache, err := New(Signature, Config{MaxEntries: 4})
	require.NoError(t, err)
	assert.Equal(t, Signature, cache.Kind())

	key := cache.SignatureKey(testSignatureContext(1))
	_, found := cache.Check(key)
	assert.False(t, found)

	cache.Record(key, true)
	cache.Record(key, true)
	result, found := cache.Check(key)
	assert.True(t, found)
	assert.True(t, result)
	assert.Equal(t, 1, cache.Len())

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(2), stats.Inserts)

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

func TestEviction(t *testing.T) {
	cache, err := New(RangeProof, Config{MaxEntries: 2})
	require.NoError(t, err)

	keys := make([]Key, 3)
	for i := range keys {
		keys[i] = cache.RangeProofKey(testRangeProofContext(i))
		cache.Record(keys[i], true)
	}
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, uint64(1), cache.Stats().Evictions)

	_, found := cache.Check(keys[0])
	assert.False(t, found)
	_, found = cache.Check(keys[2])
	assert.True(t, found)
}

func TestKeysAreSaltedAndComplete(t *testing.T) {
	a, err := New(Signature, DefaultConfig())
	require.NoError(t, err)
	b, err := New(Signature, DefaultConfig())
	require.NoError(t, err)

	ctx := testSignatureContext(7)
	assert.Equal(t, a.SignatureKey(ctx), a.SignatureKey(ctx))
	assert.NotEqual(t, a.SignatureKey(ctx), b.SignatureKey(ctx))

	mutations := []func(*SignatureContext){
		func(c *SignatureContext) { c.TxID[0] ^= 1 },
		func(c *SignatureContext) { c.InputIndex++ },
		func(c *SignatureContext) { c.AmountCommitments = nil },
		func(c *SignatureContext) { c.RedeemScript = []byte{0x52} },
		func(c *SignatureContext) { c.Signature = []byte{0x31} },
		func(c *SignatureContext) { c.PubKey = bytes.Repeat([]byte{0x03}, 33) },
		func(c *SignatureContext) { c.SigHash = nil },
	}
	for i, mutate := range mutations {
		other := testSignatureContext(7)
		mutate(&other)
		assert.NotEqual(t, a.SignatureKey(ctx), a.SignatureKey(other), "mutation %d", i)
	}

	// moving bytes between adjacent fields changes the key
	x := RangeProofContext{Proof: []byte{0x01, 0x02}, Commitment: []byte{0x03}}
	y := RangeProofContext{Proof: []byte{0x01}, Commitment: []byte{0x02, 0x03}}
	assert.NotEqual(t, a.RangeProofKey(x), a.RangeProofKey(y))
}

func TestCheckerUsesCache(t *testing.T) {
	cache, err := New(Signature, DefaultConfig())
	require.NoError(t, err)
	verifier := &mockVerifier{valid: true}
	checker := NewSignatureChecker(cache, verifier, true)

	ctx := testSignatureContext(1)
	assert.True(t, checker.Verify(ctx))
	assert.True(t, checker.Verify(ctx))
	assert.True(t, checker.Verify(ctx))
	assert.Equal(t, uint64(1), verifier.sigCalls.Load())

	// a verifier that rejects everything still sees cached entries as valid
	rejecting := &mockVerifier{valid: false}
	assert.True(t, NewSignatureChecker(cache, rejecting, false).Verify(ctx))
	assert.Equal(t, uint64(0), rejecting.sigCalls.Load())
}

func TestCheckerWithoutStore(t *testing.T) {
	cache, err := New(RangeProof, DefaultConfig())
	require.NoError(t, err)
	verifier := &mockVerifier{valid: true}
	checker := NewRangeProofChecker(cache, verifier, false)

	ctx := testRangeProofContext(1)
	assert.True(t, checker.Verify(ctx))
	assert.True(t, checker.Verify(ctx))
	assert.Equal(t, uint64(2), verifier.proofCalls.Load())
	assert.Equal(t, 0, cache.Len())
}

func TestNegativeResultsAreNotCached(t *testing.T) {
	cache, err := New(RangeProof, DefaultConfig())
	require.NoError(t, err)
	verifier := &mockVerifier{valid: false}
	checker := NewRangeProofChecker(cache, verifier, true)

	ctx := testRangeProofContext(1)
	assert.False(t, checker.Verify(ctx))
	assert.False(t, checker.Verify(ctx))
	assert.Equal(t, uint64(2), verifier.proofCalls.Load())
	assert.Equal(t, 0, cache.Len())

	verifier.valid = true
	assert.True(t, checker.Verify(ctx))
	assert.Equal(t, 1, cache.Len())
}

func TestDisabledCache(t *testing.T) {
	disabled, err := New(Signature, Config{})
	require.NoError(t, err)

	for _, cache := range []*Cache{disabled, nil} {
		verifier := &mockVerifier{valid: true}
		checker := NewSignatureChecker(cache, verifier, true)
		ctx := testSignatureContext(1)
		assert.True(t, checker.Verify(ctx))
		assert.True(t, checker.Verify(ctx))
		assert.Equal(t, uint64(2), verifier.sigCalls.Load())

		cache.Record(cache.SignatureKey(ctx), true)
		_, found := cache.Check(cache.SignatureKey(ctx))
		assert.False(t, found)
		assert.Equal(t, 0, cache.Len())
		assert.Equal(t, Stats{}, cache.Stats())
	}
}

func TestConcurrentAccess(t *testing.T) {
	const (
		capacity = 16
		workers  = 8
		keys     = 200
	)

	caches, err := NewCaches(Config{MaxEntries: capacity})
	require.NoError(t, err)
	verifier := &mockVerifier{valid: true}
	sigChecker := NewSignatureChecker(caches.Signatures, verifier, true)
	proofChecker := NewRangeProofChecker(caches.RangeProofs, verifier, true)

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < keys; i++ {
				n := (i + w) % keys
				if !sigChecker.Verify(testSignatureContext(n)) {
					return fmt.Errorf("signature %d rejected", n)
				}
				if !proofChecker.Verify(testRangeProofContext(n)) {
					return fmt.Errorf("range proof %d rejected", n)
				}
				if caches.Signatures.Len() > capacity {
					return fmt.Errorf("cache exceeded capacity")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.LessOrEqual(t, caches.Signatures.Len(), capacity)
	assert.LessOrEqual(t, caches.RangeProofs.Len(), capacity)

	stats := caches.Signatures.Stats()
	assert.Equal(t, uint64(workers*keys), stats.Hits+stats.Misses)
	assert.NotZero(t, stats.Evictions)
}

func TestDefaultVerifierSignature(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	hash := chainhash.DoubleHashB([]byte("sighash"))

	ctx := SignatureContext{
		TxID:      chainhash.HashH([]byte("tx")),
		Signature: ecdsa.Sign(key, hash).Serialize(),
		PubKey:    key.PubKey().SerializeCompressed(),
		SigHash:   hash,
	}

	cache, err := New(Signature, DefaultConfig())
	require.NoError(t, err)
	checker := NewSignatureChecker(cache, DefaultVerifier(), true)
	assert.True(t, checker.Verify(ctx))
	assert.Equal(t, 1, cache.Len())

	ctx.SigHash = chainhash.DoubleHashB([]byte("other"))
	assert.False(t, checker.Verify(ctx))
	assert.Equal(t, 1, cache.Len())
}
