package block

import (
	"context"
	"runtime"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/sigcache"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidRangeProof is returned for the first output whose range
	// proof fails to verify.
	ErrInvalidRangeProof = errors.New("invalid range proof")
	// ErrMissingAssetTag is returned when no asset tag resolver is given.
	ErrMissingAssetTag = errors.New("missing asset tag resolver")
)

// AssetTagFunc returns the asset tag the range proof of the given output
// is bound to.
type AssetTagFunc func(txHash chainhash.Hash, vout int) []byte

// FixedAssetTag binds every output to the same asset tag.
func FixedAssetTag(tag []byte) AssetTagFunc {
	return func(chainhash.Hash, int) []byte {
		return tag
	}
}

// VerifyOptions configures VerifyRangeProofs.
type VerifyOptions struct {
	// Caches holds the shared range proof cache. Nil disables caching.
	Caches *sigcache.Caches
	// Verifier defaults to sigcache.DefaultVerifier.
	Verifier sigcache.RangeProofVerifier
	AssetTag AssetTagFunc
	// Workers defaults to the number of CPUs.
	Workers int
}

// VerifyRangeProofs verifies the range proof of every blinded output of
// every transaction of the block, concurrently. Successful checks are
// recorded in the range proof cache.
func (b *Block) VerifyRangeProofs(parent context.Context, opts VerifyOptions) error {
	if opts.AssetTag == nil {
		return ErrMissingAssetTag
	}
	verifier := opts.Verifier
	if verifier == nil {
		verifier = sigcache.DefaultVerifier()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var cache *sigcache.Cache
	if opts.Caches != nil {
		cache = opts.Caches.RangeProofs
	}
	checker := sigcache.NewRangeProofChecker(cache, verifier, true)

	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(workers)

	count := 0
loop:
	for _, tx := range b.Transactions {
		txHash := tx.TxHash()
		for vout := 0; vout < tx.NumOutputs(); vout++ {
			out := tx.Output(vout)
			commitment, err := out.Value.Commitment()
			if err != nil {
				continue
			}
			if ctx.Err() != nil {
				break loop
			}

			proofCtx := sigcache.RangeProofContext{
				Proof:      out.Value.RangeProof,
				Commitment: commitment,
				AssetTag:   opts.AssetTag(txHash, vout),
				Script:     out.Script,
			}
			vout := vout
			count++
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if !checker.Verify(proofCtx) {
					return errors.Wrapf(
						ErrInvalidRangeProof, "tx %s output %d", txHash, vout,
					)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		log.Debugf("Range proof verification failed: %v", err)
		return err
	}
	if err := parent.Err(); err != nil {
		return err
	}
	log.Tracef("Verified %d range proofs", count)
	return nil
}
