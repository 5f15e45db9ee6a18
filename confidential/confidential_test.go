package confidential

import (
	"bytes"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	hash := chainhash.DoubleHashB([]byte("sighash"))

	sig := ecdsa.Sign(key, hash).Serialize()
	pubKey := key.PubKey().SerializeCompressed()

	validator := NewZKPValidator()
	assert.True(t, validator.VerifySignature(sig, pubKey, hash))
	assert.True(t, VerifySignature(sig, key.PubKey().SerializeUncompressed(), hash))

	otherHash := chainhash.DoubleHashB([]byte("other"))
	assert.False(t, VerifySignature(sig, pubKey, otherHash))

	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	assert.False(t, VerifySignature(sig, other.PubKey().SerializeCompressed(), hash))

	assert.False(t, VerifySignature(sig[:len(sig)-1], pubKey, hash))
	assert.False(t, VerifySignature(sig, pubKey[:32], hash))
	assert.False(t, VerifySignature(nil, nil, nil))
}

func TestVerifyRangeProofRejectsMalformedInput(t *testing.T) {
	commitment := append([]byte{0x08}, bytes.Repeat([]byte{0x01}, 32)...)
	asset := bytes.Repeat([]byte{0x25}, 32)

	validator := NewZKPValidator()
	assert.False(t, validator.VerifyRangeProof(nil, commitment, asset, nil))
	assert.False(t, VerifyRangeProof([]byte{0x60, 0x00}, commitment[:32], asset, nil))
	assert.False(t, VerifyRangeProof([]byte{0x60, 0x00}, commitment, asset[:31], nil))
	assert.False(t, VerifyRangeProof(bytes.Repeat([]byte{0x60}, 64), commitment, asset, nil))
}

func TestParseAssetTag(t *testing.T) {
	id := bytes.Repeat([]byte{0x25}, 32)

	tests := []struct {
		name    string
		tag     []byte
		asset   []byte
		blinded bool
		err     bool
	}{
		{"asset id", id, id, false, false},
		{"explicit asset", append([]byte{0x01}, id...), id, false, false},
		{"asset commitment", append([]byte{0x0a}, id...), append([]byte{0x0a}, id...), true, false},
		{"odd asset commitment", append([]byte{0x0b}, id...), append([]byte{0x0b}, id...), true, false},
		{"value commitment", append([]byte{0x08}, id...), nil, false, true},
		{"short", id[:20], nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, blinded, err := parseAssetTag(tt.tag)
			if tt.err {
				assert.True(t, errors.Is(err, ErrInvalidAssetTag))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.asset, asset)
			assert.Equal(t, tt.blinded, blinded)
		})
	}
}
