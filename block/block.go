package block

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/transaction"
)

const (
	null = iota
	compact
	full

	hashSize = 32
	// dynaFlag marks headers carrying dynamic federation parameters instead
	// of a static block proof.
	dynaFlag = uint32(1 << 31)
)

// ErrTrailingData is returned when bytes remain after a full block.
var ErrTrailingData = errors.New("unexpected data after block")

type Block struct {
	Header       *Header
	Transactions []*transaction.Transaction
}

// NewFromBuffer decodes a block from buf. Transactions are decoded with
// flags.
func NewFromBuffer(buf *bytes.Buffer, flags transaction.SerializeFlags) (*Block, error) {
	return deserialize(buf, flags)
}

// NewFromHex decodes a hex encoded block that must span the whole string.
func NewFromHex(h string, flags transaction.SerializeFlags) (*Block, error) {
	hexBytes, err := hex.DecodeString(h)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(hexBytes)
	b, err := NewFromBuffer(buf, flags)
	if err != nil {
		return nil, err
	}
	if buf.Len() != 0 {
		return nil, errors.Wrapf(ErrTrailingData, "%d bytes", buf.Len())
	}
	return b, nil
}

// CalcMerkleRoot returns the root of the merkle tree of the transaction ids.
// It returns the zero hash for a block without transactions.
func (b *Block) CalcMerkleRoot() chainhash.Hash {
	if len(b.Transactions) == 0 {
		return chainhash.Hash{}
	}

	level := make([]*chainhash.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		hash := tx.TxHash()
		level[i] = &hash
	}
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]*chainhash.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, blockchain.HashMerkleBranches(level[i], level[i+1]))
		}
		level = next
	}
	return *level[0]
}

type Header struct {
	// Version without the dynamic federation flag
	Version uint32
	// Previous blockhash
	PrevBlockHash chainhash.Hash
	// Transaction Merkle root
	MerkleRoot chainhash.Hash
	// Block timestamp
	Timestamp uint32
	// Block height
	Height uint32
	// Block signature and dynamic federation-related data
	ExtData *ExtData
}

// BlockHash returns the double-SHA256 of the header without the block
// signature: the proof solution or the sign block witness.
func (h *Header) BlockHash() (chainhash.Hash, error) {
	s := newSerializer()
	if err := h.serialize(s, false); err != nil {
		return chainhash.Hash{}, err
	}
	return chainhash.DoubleHashH(s.Bytes()), nil
}

// ExtData block signature and dynamic federation-related data
type ExtData struct {
	// Liquid v1-style static `signblockscript` and witness
	Proof *Proof
	// Dynamic federations
	DynamicFederation *DynamicFederation
	IsDyna            bool
}

// Proof Liquid v1-style static `signblockscript` and witness
type Proof struct {
	// Block "public key"
	Challenge []byte
	// Satisfying witness to the above challenge, or nothing
	Solution []byte
}

type DynamicFederation struct {
	Current          *DynamicFederationParams
	Proposed         *DynamicFederationParams
	SignBlockWitness [][]byte
}

type DynamicFederationParams struct {
	CompactParams *CompactParams
	FullParams    *FullParams
}

// CompactParams params where the fedpeg data and extension space
// are not included, and are assumed to be equal to the values
// from the previous block
type CompactParams struct {
	// "scriptPubKey" used for block signing
	SignBlockScript []byte
	/// Maximum, in bytes, of the size of a blocksigning witness
	SignBlockWitnessLimit uint32
	/// Merkle root of extra data
	ElidedRoot chainhash.Hash
}

// FullParams full dynamic federations parameters
type FullParams struct {
	// "scriptPubKey" used for block signing
	SignBlockScript []byte
	// Maximum, in bytes, of the size of a blocksigning witness
	SignBlockWitnessLimit uint32
	// Untweaked `scriptPubKey` used for pegins
	FedpegProgram []byte
	// For v0 fedpeg programs, the witness script of the untweaked
	// pegin address. For future versions, this data has no defined
	// meaning and will be considered "anyone can spend".
	FedpegScript []byte
	/// "Extension space" used by Liquid for PAK key entries
	ExtensionSpace [][]byte
}
