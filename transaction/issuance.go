package transaction

import (
	"encoding/json"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/vulpemventures/fastsha256"
	"github.com/vulpemventures/go-elements-ct/internal/bufferutil"
)

const (
	minGenerationSize = chainhash.HashSize + 1 + 8 + 8
	minReissuanceSize = chainhash.HashSize + 1 + chainhash.HashSize
)

// IssuanceEntity defines one of the fields of the issuance contract
type IssuanceEntity struct {
	Domain string `json:"domain"`
}

// IssuanceContract defines the structure of the Ricardian contract of the issuance
type IssuanceContract struct {
	Name      string         `json:"name"`
	Ticker    string         `json:"ticker"`
	Version   uint           `json:"version"`
	Precision uint           `json:"precision"`
	PubKey    string         `json:"issuer_pubkey"`
	Entity    IssuanceEntity `json:"entity"`
}

// Hash returns the hash of the contract serialized with its keys in
// lexicographic order.
func (c *IssuanceContract) Hash() (chainhash.Hash, error) {
	serializedContract, err := json.Marshal(c)
	if err != nil {
		return chainhash.Hash{}, err
	}
	tmp, err := orderJsonKeysLexographically(serializedContract)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return chainhash.HashH(tmp), nil
}

// AssetGeneration is the record of a new asset issuance attached to an input.
type AssetGeneration struct {
	// Nonce has no consensus meaning. It is extra entropy for the asset tag
	// calculation, used by higher layers to commit to the asset's contract.
	Nonce chainhash.Hash
	// Amount is the issued amount, either explicit or blinded.
	Amount Value
	// IssuanceTokens is the number of reissuance tokens to generate.
	IssuanceTokens uint64
	// ReissuanceTokens is the number of deflation tokens to generate.
	ReissuanceTokens uint64
}

// AssetReissuance is the record of an inflation or deflation of an existing
// asset, attached to the input spending the reissuance token.
type AssetReissuance struct {
	// Entropy is the original asset entropy.
	Entropy chainhash.Hash
	// Amount is positive for inflation, negative for deflation.
	Amount Value
	// BlindingNonce reveals the blinding key of the spent input, proving it
	// holds the reissuance capability for the asset.
	BlindingNonce chainhash.Hash
}

// IsInflation returns whether the reissuance mints an explicit positive amount.
func (r AssetReissuance) IsInflation() bool {
	amount, err := r.Amount.Amount()
	return err == nil && amount > 0
}

// IsDeflation returns whether the reissuance burns an explicit amount.
func (r AssetReissuance) IsDeflation() bool {
	amount, err := r.Amount.Amount()
	return err == nil && amount < 0
}

// Issuances groups the issuance records of a transaction. Each bit-vector is
// indexed by input position and the records are stored densely, in the order
// of the set bits.
type Issuances struct {
	GenerationBits []bool
	Generations    []AssetGeneration
	ReissuanceBits []bool
	Reissuances    []AssetReissuance
}

// IsEmpty returns true if the transaction carries no issuance records.
func (is *Issuances) IsEmpty() bool {
	return len(is.GenerationBits) == 0 && len(is.Generations) == 0 &&
		len(is.ReissuanceBits) == 0 && len(is.Reissuances) == 0
}

// Validate checks that each bit-vector is either absent or as long as the
// input list, and that each record list has one entry per set bit.
func (is *Issuances) Validate(numInputs int) error {
	if n := len(is.GenerationBits); n != 0 && n != numInputs {
		return errors.Wrapf(
			ErrIssuanceBitsLength, "generation bits: got %d, want %d",
			n, numInputs,
		)
	}
	if n := len(is.ReissuanceBits); n != 0 && n != numInputs {
		return errors.Wrapf(
			ErrIssuanceBitsLength, "reissuance bits: got %d, want %d",
			n, numInputs,
		)
	}
	if set := countSetBits(is.GenerationBits); set != len(is.Generations) {
		return errors.Wrapf(
			ErrIssuanceRecordCount, "generations: %d bits set, %d records",
			set, len(is.Generations),
		)
	}
	if set := countSetBits(is.ReissuanceBits); set != len(is.Reissuances) {
		return errors.Wrapf(
			ErrIssuanceRecordCount, "reissuances: %d bits set, %d records",
			set, len(is.Reissuances),
		)
	}
	return nil
}

// GenerationForInput returns the generation record attached to the given
// input, if any.
func (is *Issuances) GenerationForInput(index int) (*AssetGeneration, bool) {
	pos, ok := recordPosition(is.GenerationBits, index)
	if !ok || pos >= len(is.Generations) {
		return nil, false
	}
	return &is.Generations[pos], true
}

// ReissuanceForInput returns the reissuance record attached to the given
// input, if any.
func (is *Issuances) ReissuanceForInput(index int) (*AssetReissuance, bool) {
	pos, ok := recordPosition(is.ReissuanceBits, index)
	if !ok || pos >= len(is.Reissuances) {
		return nil, false
	}
	return &is.Reissuances[pos], true
}

// SetGeneration attaches gen to the input at index, replacing any existing
// generation record for that input.
func (is *Issuances) SetGeneration(numInputs, index int, gen AssetGeneration) error {
	if index < 0 || index >= numInputs {
		return errors.Wrapf(ErrInputIndexOutOfRange, "index %d", index)
	}
	is.GenerationBits = resizeBits(is.GenerationBits, numInputs)
	pos, _ := recordPosition(is.GenerationBits, index)
	if is.GenerationBits[index] {
		is.Generations[pos] = gen
		return nil
	}
	is.GenerationBits[index] = true
	is.Generations = append(is.Generations, AssetGeneration{})
	copy(is.Generations[pos+1:], is.Generations[pos:])
	is.Generations[pos] = gen
	return nil
}

// SetReissuance attaches reissuance to the input at index, replacing any
// existing reissuance record for that input.
func (is *Issuances) SetReissuance(numInputs, index int, reissuance AssetReissuance) error {
	if index < 0 || index >= numInputs {
		return errors.Wrapf(ErrInputIndexOutOfRange, "index %d", index)
	}
	is.ReissuanceBits = resizeBits(is.ReissuanceBits, numInputs)
	pos, _ := recordPosition(is.ReissuanceBits, index)
	if is.ReissuanceBits[index] {
		is.Reissuances[pos] = reissuance
		return nil
	}
	is.ReissuanceBits[index] = true
	is.Reissuances = append(is.Reissuances, AssetReissuance{})
	copy(is.Reissuances[pos+1:], is.Reissuances[pos:])
	is.Reissuances[pos] = reissuance
	return nil
}

// Copy returns a deep copy of the issuance records.
func (is Issuances) Copy() Issuances {
	c := Issuances{}
	if is.GenerationBits != nil {
		c.GenerationBits = append([]bool{}, is.GenerationBits...)
	}
	if is.ReissuanceBits != nil {
		c.ReissuanceBits = append([]bool{}, is.ReissuanceBits...)
	}
	if is.Generations != nil {
		c.Generations = make([]AssetGeneration, len(is.Generations))
		for i, g := range is.Generations {
			g.Amount = g.Amount.Copy()
			c.Generations[i] = g
		}
	}
	if is.Reissuances != nil {
		c.Reissuances = make([]AssetReissuance, len(is.Reissuances))
		for i, r := range is.Reissuances {
			r.Amount = r.Amount.Copy()
			c.Reissuances[i] = r
		}
	}
	return c
}

// Serialize writes the generation bit-vector and records, then the
// reissuance bit-vector and records.
func (is *Issuances) Serialize(s *bufferutil.Serializer) error {
	if err := writeBits(s, is.GenerationBits); err != nil {
		return err
	}
	for _, g := range is.Generations {
		if err := s.WriteSlice(g.Nonce[:]); err != nil {
			return err
		}
		if err := g.Amount.SerializeCore(s, false); err != nil {
			return err
		}
		if err := s.WriteUint64(g.IssuanceTokens); err != nil {
			return err
		}
		if err := s.WriteUint64(g.ReissuanceTokens); err != nil {
			return err
		}
	}

	if err := writeBits(s, is.ReissuanceBits); err != nil {
		return err
	}
	for _, r := range is.Reissuances {
		if err := s.WriteSlice(r.Entropy[:]); err != nil {
			return err
		}
		if err := r.Amount.SerializeCore(s, false); err != nil {
			return err
		}
		if err := s.WriteSlice(r.BlindingNonce[:]); err != nil {
			return err
		}
	}
	return nil
}

func deserializeIssuances(d *bufferutil.Deserializer, numInputs int) (Issuances, error) {
	is := Issuances{}

	genBits, err := readBits(d, numInputs)
	if err != nil {
		return is, errors.Wrap(err, "generation bits")
	}
	is.GenerationBits = genBits
	numGen := countSetBits(genBits)
	if numGen*minGenerationSize > d.Len() {
		return is, errors.Wrapf(
			ErrInvalidIssuanceBits, "%d generation records exceed data", numGen,
		)
	}
	if numGen > 0 {
		is.Generations = make([]AssetGeneration, 0, numGen)
	}
	for i := 0; i < numGen; i++ {
		var g AssetGeneration
		if err := readHash(d, &g.Nonce); err != nil {
			return is, err
		}
		if g.Amount, err = DeserializeValue(d, false); err != nil {
			return is, err
		}
		if g.IssuanceTokens, err = d.ReadUint64(); err != nil {
			return is, err
		}
		if g.ReissuanceTokens, err = d.ReadUint64(); err != nil {
			return is, err
		}
		is.Generations = append(is.Generations, g)
	}

	reBits, err := readBits(d, numInputs)
	if err != nil {
		return is, errors.Wrap(err, "reissuance bits")
	}
	is.ReissuanceBits = reBits
	numRe := countSetBits(reBits)
	if numRe*minReissuanceSize > d.Len() {
		return is, errors.Wrapf(
			ErrInvalidIssuanceBits, "%d reissuance records exceed data", numRe,
		)
	}
	if numRe > 0 {
		is.Reissuances = make([]AssetReissuance, 0, numRe)
	}
	for i := 0; i < numRe; i++ {
		var r AssetReissuance
		if err := readHash(d, &r.Entropy); err != nil {
			return is, err
		}
		if r.Amount, err = DeserializeValue(d, false); err != nil {
			return is, err
		}
		if err := readHash(d, &r.BlindingNonce); err != nil {
			return is, err
		}
		is.Reissuances = append(is.Reissuances, r)
	}

	return is, nil
}

// ComputeEntropy computes the asset entropy of a new issuance from the
// outpoint spent by the issuing input and the contract hash.
func ComputeEntropy(
	prevout OutPoint, contractHash chainhash.Hash,
) (chainhash.Hash, error) {
	s := bufferutil.NewSerializer(nil)
	if err := s.WriteSlice(prevout.Hash[:]); err != nil {
		return chainhash.Hash{}, err
	}
	if err := s.WriteUint32(prevout.Index); err != nil {
		return chainhash.Hash{}, err
	}

	buf := chainhash.DoubleHashB(s.Bytes())
	buf = append(buf, contractHash[:]...)
	return chainhash.Hash(fastsha256.MidState256(buf)), nil
}

// CalculateAsset returns the asset id derived from the given entropy.
func CalculateAsset(entropy chainhash.Hash) chainhash.Hash {
	buf := append(entropy[:], make([]byte, 32)...)
	return chainhash.Hash(fastsha256.MidState256(buf))
}

// CalculateReissuanceToken returns the id of the reissuance token derived
// from the given entropy. Tokens of blinded issuances differ from those of
// explicit ones.
func CalculateReissuanceToken(entropy chainhash.Hash, confidential bool) chainhash.Hash {
	flag := make([]byte, 32)
	flag[0] = 1
	if confidential {
		flag[0] = 2
	}
	buf := append(entropy[:], flag...)
	return chainhash.Hash(fastsha256.MidState256(buf))
}

func writeBits(s *bufferutil.Serializer, bits []bool) error {
	if err := s.WriteVarInt(uint64(len(bits))); err != nil {
		return err
	}
	packed := make([]byte, (len(bits)+7)/8)
	for i, set := range bits {
		if set {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	return s.WriteSlice(packed)
}

// readBits reads a packed bit-vector, which must be either empty or hold
// exactly numInputs bits.
func readBits(d *bufferutil.Deserializer, numInputs int) ([]bool, error) {
	n, err := d.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n != uint64(numInputs) {
		return nil, errors.Wrapf(
			ErrIssuanceBitsLength, "got %d bits for %d inputs", n, numInputs,
		)
	}
	numBytes := (n + 7) / 8
	if numBytes > uint64(d.Len()) {
		return nil, errors.Wrapf(
			ErrInvalidIssuanceBits, "%d bits exceed remaining data", n,
		)
	}
	packed, err := d.ReadSlice(uint(numBytes))
	if err != nil {
		return nil, err
	}
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = packed[i/8]&(1<<uint(i%8)) != 0
	}
	if rem := n % 8; rem != 0 && packed[numBytes-1]>>rem != 0 {
		return nil, errors.Wrap(ErrInvalidIssuanceBits, "padding bits set")
	}
	return bits, nil
}

func readHash(d *bufferutil.Deserializer, h *chainhash.Hash) error {
	b, err := d.ReadSlice(chainhash.HashSize)
	if err != nil {
		return err
	}
	copy(h[:], b)
	return nil
}

func countSetBits(bits []bool) int {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}

// recordPosition returns the rank of index among the set bits.
func recordPosition(bits []bool, index int) (int, bool) {
	if index < 0 || index >= len(bits) {
		return 0, false
	}
	return countSetBits(bits[:index]), bits[index]
}

func resizeBits(bits []bool, n int) []bool {
	if len(bits) >= n {
		return bits
	}
	return append(bits, make([]bool, n-len(bits))...)
}

func orderJsonKeysLexographically(bytes []byte) ([]byte, error) {
	var ifce interface{}
	err := json.Unmarshal(bytes, &ifce)
	if err != nil {
		return []byte{}, err
	}
	output, err := json.Marshal(ifce)
	if err != nil {
		return []byte{}, err
	}
	return output, nil
}
