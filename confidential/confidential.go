//go:build cgo

package confidential

import (
	"github.com/vulpemventures/go-secp256k1-zkp"
)

// VerifyRangeProof checks that proof proves the value committed in
// valueCommitment is in range. assetTag is either a 33-byte asset
// commitment, a 33-byte explicit asset (prefix 0x01) or a bare 32-byte asset
// id. script is the extra data the proof commits to, usually the output
// script.
func VerifyRangeProof(proof, valueCommitment, assetTag, script []byte) bool {
	if len(proof) == 0 || len(valueCommitment) != commitmentSize {
		return false
	}

	ctx, err := secp256k1.ContextCreate(secp256k1.ContextBoth)
	if err != nil {
		return false
	}
	defer secp256k1.ContextDestroy(ctx)

	commitment, err := secp256k1.CommitmentParse(ctx, valueCommitment)
	if err != nil {
		return false
	}
	gen, err := assetGenerator(ctx, assetTag)
	if err != nil {
		return false
	}

	ok, _, _ := secp256k1.RangeProofVerify(ctx, proof, commitment, script, gen)
	return ok
}

func assetGenerator(ctx *secp256k1.Context, assetTag []byte) (*secp256k1.Generator, error) {
	asset, blinded, err := parseAssetTag(assetTag)
	if err != nil {
		return nil, err
	}
	if blinded {
		return secp256k1.GeneratorParse(ctx, asset)
	}
	return secp256k1.GeneratorGenerate(ctx, asset)
}
