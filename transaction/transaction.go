package transaction

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

const (
	// DefaultVersion is the default transaction version.
	DefaultVersion = int32(1)
	// MaxStandardVersion is the highest transaction version relayed by
	// default.
	MaxStandardVersion = int32(2)
	// DefaultSequence disables lock time for the input when set on every
	// input of a transaction.
	DefaultSequence = uint32(0xffffffff)
	// FeeBitcoinTx marks a transaction whose fee is implicit, as in the
	// parent format. Such a transaction is encoded without the fee field,
	// with plain amounts and without issuance records.
	FeeBitcoinTx = int64(-42)
	// WitnessScaleFactor is the weight of a non-witness byte.
	WitnessScaleFactor = 4

	// SequenceLockTimeDisabled, SequenceLockTimeIsSeconds and
	// SequenceLockTimeMask have the relative lock time meaning of the parent
	// format.
	SequenceLockTimeDisabled  = uint32(1 << 31)
	SequenceLockTimeIsSeconds = uint32(1 << 22)
	SequenceLockTimeMask      = uint32(0x0000ffff)
)

// OutPoint references an output of a previous transaction.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new outpoint.
func NewOutPoint(hash chainhash.Hash, index uint32) OutPoint {
	return OutPoint{Hash: hash, Index: index}
}

// IsNull returns true for the outpoint spent by coinbase inputs.
func (o OutPoint) IsNull() bool {
	return o.Hash == chainhash.Hash{} && o.Index == math.MaxUint32
}

// String returns the outpoint in the human-readable form "hash:index".
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash, o.Index)
}

// TxInput defines an elements transaction input.
type TxInput struct {
	PrevOut  OutPoint
	Script   []byte
	Sequence uint32
}

// NewTxInput returns a new input spending the given outpoint.
func NewTxInput(hash chainhash.Hash, index uint32) *TxInput {
	return &TxInput{
		PrevOut:  NewOutPoint(hash, index),
		Sequence: DefaultSequence,
	}
}

// Copy returns a deep copy of the input.
func (in *TxInput) Copy() *TxInput {
	return &TxInput{
		PrevOut:  in.PrevOut,
		Script:   copyBytes(in.Script),
		Sequence: in.Sequence,
	}
}

// TxOutput defines an elements transaction output.
type TxOutput struct {
	Value  Value
	Script []byte
}

// NewTxOutput returns a new output.
func NewTxOutput(value Value, script []byte) *TxOutput {
	return &TxOutput{Value: value, Script: script}
}

// IsNull returns true if both value and script are unset.
func (out *TxOutput) IsNull() bool {
	return out.Value.IsNull() && len(out.Script) == 0
}

// Copy returns a deep copy of the output.
func (out *TxOutput) Copy() *TxOutput {
	return &TxOutput{
		Value:  out.Value.Copy(),
		Script: copyBytes(out.Script),
	}
}

// MutableTransaction is the editable form of a transaction. Its hash is
// computed on demand. Convert it with NewTransaction once built.
type MutableTransaction struct {
	Version  int32
	Fee      int64
	Inputs   []*TxInput
	Outputs  []*TxOutput
	Issuances
	Witness  TxWitness
	LockTime uint32
}

// NewMutableTransaction returns an empty transaction with the default
// version.
func NewMutableTransaction() *MutableTransaction {
	return &MutableTransaction{Version: DefaultVersion}
}

// AddInput adds a transaction input.
func (mtx *MutableTransaction) AddInput(in *TxInput) {
	mtx.Inputs = append(mtx.Inputs, in)
}

// AddOutput adds a transaction output.
func (mtx *MutableTransaction) AddOutput(out *TxOutput) {
	mtx.Outputs = append(mtx.Outputs, out)
}

// IsParentFormat returns whether the fee is the implicit-fee sentinel.
func (mtx *MutableTransaction) IsParentFormat() bool {
	return mtx.Fee == FeeBitcoinTx
}

// Validate checks the structural consistency of the transaction.
func (mtx *MutableTransaction) Validate() error {
	if err := mtx.Issuances.Validate(len(mtx.Inputs)); err != nil {
		return err
	}
	if len(mtx.Witness.Inputs) > len(mtx.Inputs) {
		return errors.Wrapf(
			ErrTooManyInputWitnesses, "%d witnesses for %d inputs",
			len(mtx.Witness.Inputs), len(mtx.Inputs),
		)
	}
	return nil
}

// TxHash computes the hash of the transaction without witness data.
func (mtx *MutableTransaction) TxHash() (chainhash.Hash, error) {
	buf, err := mtx.Serialize(NoWitness)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return chainhash.DoubleHashH(buf), nil
}

// Copy returns a deep copy of the transaction.
func (mtx *MutableTransaction) Copy() *MutableTransaction {
	c := &MutableTransaction{
		Version:   mtx.Version,
		Fee:       mtx.Fee,
		Issuances: mtx.Issuances.Copy(),
		Witness:   mtx.Witness.Copy(),
		LockTime:  mtx.LockTime,
	}
	if mtx.Inputs != nil {
		c.Inputs = make([]*TxInput, len(mtx.Inputs))
		for i, in := range mtx.Inputs {
			c.Inputs[i] = in.Copy()
		}
	}
	if mtx.Outputs != nil {
		c.Outputs = make([]*TxOutput, len(mtx.Outputs))
		for i, out := range mtx.Outputs {
			c.Outputs[i] = out.Copy()
		}
	}
	return c
}

// Transaction is the immutable form of a transaction. Its hash is computed
// once, when it is built from a MutableTransaction or decoded, and every
// accessor returns copies.
type Transaction struct {
	tx   MutableTransaction
	hash chainhash.Hash
}

// NewTransaction validates mtx and returns an immutable copy of it along
// with its cached hash.
func NewTransaction(mtx *MutableTransaction) (*Transaction, error) {
	c := mtx.Copy()
	return newTransaction(c)
}

// newTransaction takes ownership of mtx.
func newTransaction(mtx *MutableTransaction) (*Transaction, error) {
	if err := mtx.Validate(); err != nil {
		return nil, err
	}
	hash, err := mtx.TxHash()
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: *mtx, hash: hash}, nil
}

// ToMutable returns an editable copy of the transaction.
func (tx *Transaction) ToMutable() *MutableTransaction {
	return tx.tx.Copy()
}

// TxHash returns the cached hash of the transaction without witness data.
func (tx *Transaction) TxHash() chainhash.Hash {
	return tx.hash
}

// WitnessHash returns the hash of the transaction including both witness
// channels. It equals TxHash when no witness data is present.
func (tx *Transaction) WitnessHash() chainhash.Hash {
	if !tx.HasWitness() && !tx.HasOutputWitness() {
		return tx.hash
	}
	buf, err := tx.tx.Serialize(0)
	if err != nil {
		// encoding without witness data succeeded in newTransaction
		panic(err)
	}
	return chainhash.DoubleHashH(buf)
}

// Equal returns true if both transactions have the same hash.
func (tx *Transaction) Equal(other *Transaction) bool {
	return tx.hash == other.hash
}

// Version returns the transaction version.
func (tx *Transaction) Version() int32 {
	return tx.tx.Version
}

// Fee returns the fee field. FeeBitcoinTx marks a parent-format
// transaction.
func (tx *Transaction) Fee() int64 {
	return tx.tx.Fee
}

// LockTime returns the lock time.
func (tx *Transaction) LockTime() uint32 {
	return tx.tx.LockTime
}

// NumInputs returns the number of inputs.
func (tx *Transaction) NumInputs() int {
	return len(tx.tx.Inputs)
}

// NumOutputs returns the number of outputs.
func (tx *Transaction) NumOutputs() int {
	return len(tx.tx.Outputs)
}

// Input returns a copy of the input at index i.
func (tx *Transaction) Input(i int) TxInput {
	return *tx.tx.Inputs[i].Copy()
}

// Output returns a copy of the output at index i.
func (tx *Transaction) Output(i int) TxOutput {
	return *tx.tx.Outputs[i].Copy()
}

// Inputs returns a copy of the inputs.
func (tx *Transaction) Inputs() []TxInput {
	ins := make([]TxInput, len(tx.tx.Inputs))
	for i := range tx.tx.Inputs {
		ins[i] = tx.Input(i)
	}
	return ins
}

// Outputs returns a copy of the outputs.
func (tx *Transaction) Outputs() []TxOutput {
	outs := make([]TxOutput, len(tx.tx.Outputs))
	for i := range tx.tx.Outputs {
		outs[i] = tx.Output(i)
	}
	return outs
}

// InputWitness returns a copy of the witness stack of input i. Inputs
// without witness return an empty stack.
func (tx *Transaction) InputWitness(i int) InputWitness {
	if i < len(tx.tx.Witness.Inputs) {
		return tx.tx.Witness.Inputs[i].Copy()
	}
	return nil
}

// Issuances returns a copy of the issuance records.
func (tx *Transaction) Issuances() Issuances {
	return tx.tx.Issuances.Copy()
}

// Generation returns a copy of the generation record attached to input i.
func (tx *Transaction) Generation(i int) (AssetGeneration, bool) {
	g, ok := tx.tx.GenerationForInput(i)
	if !ok {
		return AssetGeneration{}, false
	}
	c := *g
	c.Amount = g.Amount.Copy()
	return c, true
}

// Reissuance returns a copy of the reissuance record attached to input i.
func (tx *Transaction) Reissuance(i int) (AssetReissuance, bool) {
	r, ok := tx.tx.ReissuanceForInput(i)
	if !ok {
		return AssetReissuance{}, false
	}
	c := *r
	c.Amount = r.Amount.Copy()
	return c, true
}

// HasWitness returns whether any input carries witness data.
func (tx *Transaction) HasWitness() bool {
	return !tx.tx.Witness.IsNull()
}

// HasOutputWitness returns whether any output carries a range proof or a
// nonce commitment.
func (tx *Transaction) HasOutputWitness() bool {
	return !outputWitnessIsNull(tx.tx.Outputs)
}

// IsNull returns true for a transaction without inputs and outputs.
func (tx *Transaction) IsNull() bool {
	return len(tx.tx.Inputs) == 0 && len(tx.tx.Outputs) == 0
}

// IsCoinBase returns whether the transaction has a single input spending the
// null outpoint.
func (tx *Transaction) IsCoinBase() bool {
	return len(tx.tx.Inputs) == 1 && tx.tx.Inputs[0].PrevOut.IsNull()
}

// Serialize encodes the transaction according to flags.
func (tx *Transaction) Serialize(flags SerializeFlags) ([]byte, error) {
	return tx.tx.Serialize(flags)
}

// ToHex returns the hex encoding of the full native serialization.
func (tx *Transaction) ToHex() (string, error) {
	buf, err := tx.Serialize(0)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SerializeSize returns the number of bytes of the encoding selected by
// flags.
func (tx *Transaction) SerializeSize(flags SerializeFlags) int {
	buf, err := tx.Serialize(flags)
	if err != nil {
		return 0
	}
	return len(buf)
}

// Weight returns the weight of the transaction: non-witness bytes count
// WitnessScaleFactor times, witness bytes once.
func (tx *Transaction) Weight() int {
	base := tx.SerializeSize(NoWitness)
	total := tx.SerializeSize(0)
	return base*(WitnessScaleFactor-1) + total
}

// VirtualSize returns the weight scaled down and rounded up.
func (tx *Transaction) VirtualSize() int {
	return (tx.Weight() + WitnessScaleFactor - 1) / WitnessScaleFactor
}

// String returns a short human-readable description.
func (tx *Transaction) String() string {
	return fmt.Sprintf(
		"Transaction(hash=%s, ver=%d, fee=%d, vin.size=%d, vout.size=%d, nLockTime=%d)",
		tx.hash, tx.tx.Version, tx.tx.Fee, len(tx.tx.Inputs),
		len(tx.tx.Outputs), tx.tx.LockTime,
	)
}
