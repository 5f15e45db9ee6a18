package sigcache

import (
	"github.com/vulpemventures/go-elements-ct/confidential"
)

// SignatureVerifier verifies a signature of hash by pubKey.
type SignatureVerifier interface {
	VerifySignature(sig, pubKey, hash []byte) bool
}

// RangeProofVerifier verifies that proof proves the value committed in
// commitment is in range.
type RangeProofVerifier interface {
	VerifyRangeProof(proof, commitment, assetTag, script []byte) bool
}

// Verifier performs both checks.
type Verifier interface {
	SignatureVerifier
	RangeProofVerifier
}

// DefaultVerifier returns the verifier backed by the secp256k1 primitives.
func DefaultVerifier() Verifier {
	return confidential.NewZKPValidator()
}

// SignatureChecker verifies signatures through a cache. When store is set,
// successful checks are recorded. Failed checks are never recorded.
type SignatureChecker struct {
	cache    *Cache
	verifier SignatureVerifier
	store    bool
}

// NewSignatureChecker returns a checker backed by cache, which may be nil.
func NewSignatureChecker(
	cache *Cache, verifier SignatureVerifier, store bool,
) *SignatureChecker {
	return &SignatureChecker{cache: cache, verifier: verifier, store: store}
}

// Verify returns whether the signature described by ctx is valid.
func (c *SignatureChecker) Verify(ctx SignatureContext) bool {
	if !c.cache.enabled() {
		return c.verifier.VerifySignature(ctx.Signature, ctx.PubKey, ctx.SigHash)
	}

	key := c.cache.SignatureKey(ctx)
	if result, ok := c.cache.Check(key); ok && result {
		return true
	}
	if !c.verifier.VerifySignature(ctx.Signature, ctx.PubKey, ctx.SigHash) {
		return false
	}
	if c.store {
		c.cache.Record(key, true)
	}
	return true
}

// RangeProofChecker verifies range proofs through a cache. When store is
// set, successful checks are recorded. Failed checks are never recorded.
type RangeProofChecker struct {
	cache    *Cache
	verifier RangeProofVerifier
	store    bool
}

// NewRangeProofChecker returns a checker backed by cache, which may be nil.
func NewRangeProofChecker(
	cache *Cache, verifier RangeProofVerifier, store bool,
) *RangeProofChecker {
	return &RangeProofChecker{cache: cache, verifier: verifier, store: store}
}

// Verify returns whether the range proof described by ctx is valid.
func (c *RangeProofChecker) Verify(ctx RangeProofContext) bool {
	if !c.cache.enabled() {
		return c.verify(ctx)
	}

	key := c.cache.RangeProofKey(ctx)
	if result, ok := c.cache.Check(key); ok && result {
		return true
	}
	if !c.verify(ctx) {
		return false
	}
	if c.store {
		c.cache.Record(key, true)
	}
	return true
}

func (c *RangeProofChecker) verify(ctx RangeProofContext) bool {
	return c.verifier.VerifyRangeProof(
		ctx.Proof, ctx.Commitment, ctx.AssetTag, ctx.Script,
	)
}
