package confidential

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
)

const (
	commitmentSize = 33
	assetIDSize    = 32

	explicitAssetPrefix = 0x01
	blindedAssetEven    = 0x0a
	blindedAssetOdd     = 0x0b
)

// ErrInvalidAssetTag is returned for asset tags that are neither an asset
// commitment nor an explicit asset.
var ErrInvalidAssetTag = errors.New("invalid asset tag")

// zkpValidator is the type that provides methods to validate signatures
// and zero-knowledge proofs.
type zkpValidator struct{}

// NewZKPValidator creates a new zkpValidator.
func NewZKPValidator() *zkpValidator {
	return &zkpValidator{}
}

// VerifySignature verifies a DER encoded ECDSA signature of hash.
func (v *zkpValidator) VerifySignature(sig, pubKey, hash []byte) bool {
	return VerifySignature(sig, pubKey, hash)
}

// VerifyRangeProof verifies a value range proof.
func (v *zkpValidator) VerifyRangeProof(
	proof, valueCommitment, assetTag, script []byte,
) bool {
	return VerifyRangeProof(proof, valueCommitment, assetTag, script)
}

// VerifySignature verifies a DER encoded ECDSA signature of hash against a
// serialized public key. The sighash byte must be stripped from sig.
func VerifySignature(sig, pubKey, hash []byte) bool {
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	return signature.Verify(hash, key)
}

// parseAssetTag returns the 32-byte asset id of an explicit asset or the
// 33-byte serialized generator of a blinded one.
func parseAssetTag(tag []byte) (asset []byte, blinded bool, err error) {
	switch len(tag) {
	case assetIDSize:
		return tag, false, nil
	case commitmentSize:
		switch tag[0] {
		case explicitAssetPrefix:
			return tag[1:], false, nil
		case blindedAssetEven, blindedAssetOdd:
			return tag, true, nil
		}
		return nil, false, errors.Wrapf(ErrInvalidAssetTag, "prefix %#x", tag[0])
	default:
		return nil, false, errors.Wrapf(ErrInvalidAssetTag, "length %d", len(tag))
	}
}
