package block

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements-ct/sigcache"
	"github.com/vulpemventures/go-elements-ct/transaction"
)

func newTestTx(t *testing.T, seed byte, blinded int) *transaction.Transaction {
	mtx := transaction.NewMutableTransaction()
	mtx.Version = 2
	mtx.Fee = 100
	mtx.AddInput(transaction.NewTxInput(chainhash.HashH([]byte{seed}), 0))
	mtx.AddOutput(transaction.NewTxOutput(transaction.NewValueFromAmount(100), nil))
	for i := 0; i < blinded; i++ {
		value, err := transaction.NewValueFromCommitment(
			append([]byte{0x08}, bytes.Repeat([]byte{seed + byte(i)}, 32)...),
		)
		require.NoError(t, err)
		value.RangeProof = []byte{0x60, seed, byte(i)}
		mtx.AddOutput(transaction.NewTxOutput(value, []byte{0x51}))
	}
	tx, err := transaction.NewTransaction(mtx)
	require.NoError(t, err)
	return tx
}

func newTestBlock(t *testing.T, txs ...*transaction.Transaction) *Block {
	b := &Block{
		Header: &Header{
			Version:       0x20000000,
			PrevBlockHash: chainhash.HashH([]byte("prev")),
			Timestamp:     1600000000,
			Height:        42,
			ExtData: &ExtData{
				Proof: &Proof{
					Challenge: []byte{0x51},
					Solution:  []byte{0x00, 0x01},
				},
			},
		},
		Transactions: txs,
	}
	b.Header.MerkleRoot = b.CalcMerkleRoot()
	return b
}

func TestBlockRoundTrip(t *testing.T) {
	b := newTestBlock(t, newTestTx(t, 1, 1), newTestTx(t, 2, 2))

	raw, err := b.Serialize(0)
	require.NoError(t, err)

	decoded, err := NewFromHex(hex.EncodeToString(raw), 0)
	require.NoError(t, err)
	require.Len(t, decoded.Transactions, 2)
	assert.Equal(t, b.Header.Version, decoded.Header.Version)
	assert.Equal(t, b.Header.PrevBlockHash, decoded.Header.PrevBlockHash)
	assert.Equal(t, b.Header.MerkleRoot, decoded.Header.MerkleRoot)
	assert.Equal(t, b.Header.Height, decoded.Header.Height)
	assert.Equal(t, b.Header.ExtData.Proof, decoded.Header.ExtData.Proof)
	for i, tx := range b.Transactions {
		assert.Equal(t, tx.WitnessHash(), decoded.Transactions[i].WitnessHash())
	}
	assert.Equal(t, b.CalcMerkleRoot(), decoded.CalcMerkleRoot())

	reencoded, err := decoded.Serialize(0)
	require.NoError(t, err)
	assert.Equal(t, raw, reencoded)

	_, err = NewFromHex(hex.EncodeToString(append(raw, 0x00)), 0)
	assert.True(t, errors.Is(err, ErrTrailingData))
}

func TestDynamicFederationRoundTrip(t *testing.T) {
	b := newTestBlock(t, newTestTx(t, 1, 0))
	b.Header.ExtData = &ExtData{
		IsDyna: true,
		DynamicFederation: &DynamicFederation{
			Current: &DynamicFederationParams{
				CompactParams: &CompactParams{
					SignBlockScript:       []byte{0x00, 0x20},
					SignBlockWitnessLimit: 1416,
					ElidedRoot:            chainhash.HashH([]byte("elided")),
				},
			},
			Proposed: &DynamicFederationParams{
				FullParams: &FullParams{
					SignBlockScript:       []byte{0x51},
					SignBlockWitnessLimit: 10,
					FedpegProgram:         []byte{0x00, 0x14},
					FedpegScript:          []byte{0x52},
					ExtensionSpace:        [][]byte{{0x02, 0x03}, {0x04}},
				},
			},
			SignBlockWitness: [][]byte{{0x30, 0x44}},
		},
	}

	raw, err := b.Serialize(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0xa0), raw[3])

	decoded, err := NewFromBuffer(bytes.NewBuffer(raw), 0)
	require.NoError(t, err)
	assert.True(t, decoded.Header.ExtData.IsDyna)
	assert.Equal(t, uint32(0x20000000), decoded.Header.Version)
	assert.Equal(t, b.Header.ExtData.DynamicFederation, decoded.Header.ExtData.DynamicFederation)

	reencoded, err := decoded.Serialize(0)
	require.NoError(t, err)
	assert.Equal(t, raw, reencoded)
}

func TestBadDynamicFederationParams(t *testing.T) {
	b := newTestBlock(t)
	b.Header.ExtData = &ExtData{IsDyna: true, DynamicFederation: &DynamicFederation{}}
	raw, err := b.Serialize(0)
	require.NoError(t, err)

	// the current params discriminant follows the fixed header fields
	raw[4+32+32+4+4] = 0x07
	_, err = NewFromBuffer(bytes.NewBuffer(raw), 0)
	assert.True(t, errors.Is(err, ErrBadParamsType))
}

func TestBlockHashExcludesSignature(t *testing.T) {
	b := newTestBlock(t, newTestTx(t, 1, 0))
	hash, err := b.Header.BlockHash()
	require.NoError(t, err)

	b.Header.ExtData.Proof.Solution = []byte{0xff, 0xff, 0xff}
	sameHash, err := b.Header.BlockHash()
	require.NoError(t, err)
	assert.Equal(t, hash, sameHash)

	b.Header.ExtData.Proof.Challenge = []byte{0x52}
	otherHash, err := b.Header.BlockHash()
	require.NoError(t, err)
	assert.NotEqual(t, hash, otherHash)

	b.Header.Height++
	heightHash, err := b.Header.BlockHash()
	require.NoError(t, err)
	assert.NotEqual(t, otherHash, heightHash)
}

func TestCalcMerkleRoot(t *testing.T) {
	assert.Equal(t, chainhash.Hash{}, (&Block{}).CalcMerkleRoot())

	tx1, tx2, tx3 := newTestTx(t, 1, 0), newTestTx(t, 2, 0), newTestTx(t, 3, 0)
	h1, h2, h3 := tx1.TxHash(), tx2.TxHash(), tx3.TxHash()

	assert.Equal(t, h1, newTestBlock(t, tx1).CalcMerkleRoot())

	left := blockchain.HashMerkleBranches(&h1, &h2)
	assert.Equal(t, *left, newTestBlock(t, tx1, tx2).CalcMerkleRoot())

	right := blockchain.HashMerkleBranches(&h3, &h3)
	root := blockchain.HashMerkleBranches(left, right)
	assert.Equal(t, *root, newTestBlock(t, tx1, tx2, tx3).CalcMerkleRoot())
}

type mockProofVerifier struct {
	mtx     sync.Mutex
	calls   int
	invalid map[byte]bool
}

func (m *mockProofVerifier) VerifyRangeProof(proof, commitment, assetTag, script []byte) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.calls++
	return len(proof) == 3 && !m.invalid[proof[1]]
}

func TestVerifyRangeProofs(t *testing.T) {
	b := newTestBlock(t, newTestTx(t, 1, 2), newTestTx(t, 2, 3), newTestTx(t, 3, 0))
	caches, err := sigcache.NewCaches(sigcache.DefaultConfig())
	require.NoError(t, err)

	verifier := &mockProofVerifier{}
	opts := VerifyOptions{
		Caches:   caches,
		Verifier: verifier,
		AssetTag: FixedAssetTag(bytes.Repeat([]byte{0x0a}, 33)),
		Workers:  2,
	}

	require.NoError(t, b.VerifyRangeProofs(context.Background(), opts))
	assert.Equal(t, 5, verifier.calls)
	assert.Equal(t, 5, caches.RangeProofs.Len())

	// a second pass is served from the cache
	require.NoError(t, b.VerifyRangeProofs(context.Background(), opts))
	assert.Equal(t, 5, verifier.calls)

	// a different asset tag is a different check
	opts.AssetTag = FixedAssetTag(bytes.Repeat([]byte{0x0b}, 33))
	require.NoError(t, b.VerifyRangeProofs(context.Background(), opts))
	assert.Equal(t, 10, verifier.calls)
}

func TestVerifyRangeProofsFailure(t *testing.T) {
	b := newTestBlock(t, newTestTx(t, 1, 2), newTestTx(t, 2, 3))
	verifier := &mockProofVerifier{invalid: map[byte]bool{2: true}}

	err := b.VerifyRangeProofs(context.Background(), VerifyOptions{
		Verifier: verifier,
		AssetTag: FixedAssetTag(bytes.Repeat([]byte{0x0a}, 33)),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRangeProof))
	assert.Contains(t, err.Error(), b.Transactions[1].TxHash().String())

	err = b.VerifyRangeProofs(context.Background(), VerifyOptions{Verifier: verifier})
	assert.True(t, errors.Is(err, ErrMissingAssetTag))
}

func TestVerifyRangeProofsCanceled(t *testing.T) {
	b := newTestBlock(t, newTestTx(t, 1, 2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.VerifyRangeProofs(ctx, VerifyOptions{
		Verifier: &mockProofVerifier{},
		AssetTag: FixedAssetTag(bytes.Repeat([]byte{0x0a}, 33)),
	})
	assert.True(t, errors.Is(err, context.Canceled))
}
