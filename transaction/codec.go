package transaction

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/internal/bufferutil"
)

// SerializeFlags select the encoding of a transaction. They are negotiated
// by the caller and never stored in the stream. The zero value allows
// witness data and uses the native format.
type SerializeFlags uint8

const (
	// NoWitness disables both witness channels.
	NoWitness SerializeFlags = 1 << iota
	// Compatibility selects the non-confidential parent format: no fee
	// field, plain 8-byte amounts, no issuance records and no witness
	// channels.
	Compatibility
)

// AllowWitness returns whether witness channels may be encoded or decoded.
func (f SerializeFlags) AllowWitness() bool {
	return f&NoWitness == 0
}

// IsCompatibility returns whether the parent format is selected.
func (f SerializeFlags) IsCompatibility() bool {
	return f&Compatibility != 0
}

// Optional data flags of the extended format.
const (
	witnessFlag       = byte(1)
	outputWitnessFlag = byte(2)
)

const (
	minTxInSize        = chainhash.HashSize + 4 + 1 + 4
	minTxOutSize       = 1 + 1
	minCompatTxOutSize = 8 + 1
)

// Serialize encodes the transaction according to flags.
//
// Basic format:
//   - int32 version
//   - int64 fee (native only)
//   - inputs
//   - outputs
//   - issuance records (native only)
//   - uint32 lock time
//
// Extended format, used when a witness channel has data and flags allow it:
//   - int32 version
//   - int64 fee (native only)
//   - 0x00 dummy empty input list
//   - byte flags (!= 0)
//   - inputs
//   - outputs
//   - issuance records (native only)
//   - if flags & 1: one witness stack per input
//   - if flags & 2: one (range proof, nonce commitment) pair per output
//   - uint32 lock time
func (mtx *MutableTransaction) Serialize(flags SerializeFlags) ([]byte, error) {
	s := bufferutil.NewSerializer(nil)
	if err := mtx.serialize(s, flags); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

func (mtx *MutableTransaction) serialize(
	s *bufferutil.Serializer, flags SerializeFlags,
) error {
	compat := flags.IsCompatibility()
	parent := compat || mtx.IsParentFormat()

	if len(mtx.Witness.Inputs) > len(mtx.Inputs) {
		return errors.Wrapf(
			ErrTooManyInputWitnesses, "%d witnesses for %d inputs",
			len(mtx.Witness.Inputs), len(mtx.Inputs),
		)
	}
	if parent && !mtx.Issuances.IsEmpty() {
		return ErrIssuanceInParentTx
	}

	if err := s.WriteInt32(mtx.Version); err != nil {
		return err
	}
	if !parent {
		if err := s.WriteInt64(mtx.Fee); err != nil {
			return err
		}
	}

	var txFlags byte
	if flags.AllowWitness() && !compat {
		if !mtx.Witness.IsNull() {
			txFlags |= witnessFlag
		}
		if !parent && !outputWitnessIsNull(mtx.Outputs) {
			txFlags |= outputWitnessFlag
		}
	}
	if txFlags != 0 {
		if err := s.WriteVarInt(0); err != nil {
			return err
		}
		if err := s.WriteUint8(txFlags); err != nil {
			return err
		}
	}

	if err := serializeInputs(s, mtx.Inputs); err != nil {
		return err
	}
	if err := serializeOutputs(s, mtx.Outputs, parent); err != nil {
		return err
	}
	if !parent {
		if err := mtx.Issuances.Serialize(s); err != nil {
			return err
		}
	}

	if txFlags&witnessFlag != 0 {
		if err := mtx.Witness.serialize(s, len(mtx.Inputs)); err != nil {
			return err
		}
	}
	if txFlags&outputWitnessFlag != 0 {
		if err := serializeOutputWitness(s, mtx.Outputs); err != nil {
			return err
		}
	}

	return s.WriteUint32(mtx.LockTime)
}

func serializeInputs(s *bufferutil.Serializer, inputs []*TxInput) error {
	if err := s.WriteVarInt(uint64(len(inputs))); err != nil {
		return err
	}
	for _, in := range inputs {
		if err := s.WriteSlice(in.PrevOut.Hash[:]); err != nil {
			return err
		}
		if err := s.WriteUint32(in.PrevOut.Index); err != nil {
			return err
		}
		if err := s.WriteVarSlice(in.Script); err != nil {
			return err
		}
		if err := s.WriteUint32(in.Sequence); err != nil {
			return err
		}
	}
	return nil
}

func serializeOutputs(
	s *bufferutil.Serializer, outputs []*TxOutput, compat bool,
) error {
	if err := s.WriteVarInt(uint64(len(outputs))); err != nil {
		return err
	}
	for i, out := range outputs {
		if err := out.Value.SerializeCore(s, compat); err != nil {
			return errors.Wrapf(err, "output %d", i)
		}
		if err := s.WriteVarSlice(out.Script); err != nil {
			return err
		}
	}
	return nil
}

// NewTxFromBuffer decodes one transaction from buf, leaving any following
// data unread.
func NewTxFromBuffer(buf *bytes.Buffer, flags SerializeFlags) (*Transaction, error) {
	d := bufferutil.NewDeserializer(buf)
	mtx, err := deserialize(d, flags)
	if err != nil {
		return nil, err
	}
	return newTransaction(mtx)
}

// NewTxFromBytes decodes a transaction that must span the whole of b.
func NewTxFromBytes(b []byte, flags SerializeFlags) (*Transaction, error) {
	buf := bytes.NewBuffer(b)
	tx, err := NewTxFromBuffer(buf, flags)
	if err != nil {
		return nil, err
	}
	if buf.Len() != 0 {
		return nil, errors.Wrapf(ErrTrailingData, "%d bytes", buf.Len())
	}
	return tx, nil
}

// NewTxFromHex decodes a hex encoded transaction.
func NewTxFromHex(str string, flags SerializeFlags) (*Transaction, error) {
	b, err := hex.DecodeString(str)
	if err != nil {
		return nil, err
	}
	return NewTxFromBytes(b, flags)
}

// NewMutableTxFromBytes decodes a transaction into its editable form.
func NewMutableTxFromBytes(b []byte, flags SerializeFlags) (*MutableTransaction, error) {
	tx, err := NewTxFromBytes(b, flags)
	if err != nil {
		return nil, err
	}
	return tx.ToMutable(), nil
}

func deserialize(
	d *bufferutil.Deserializer, flags SerializeFlags,
) (*MutableTransaction, error) {
	compat := flags.IsCompatibility()
	allowWitness := flags.AllowWitness()
	mtx := &MutableTransaction{}

	version, err := d.ReadInt32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read version")
	}
	mtx.Version = version

	if compat {
		mtx.Fee = FeeBitcoinTx
	} else {
		fee, err := d.ReadInt64()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read fee")
		}
		if fee == FeeBitcoinTx {
			return nil, ErrReservedFee
		}
		mtx.Fee = fee
	}

	var txFlags byte
	inputs, err := deserializeInputs(d)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 && allowWitness && !compat {
		// either the dummy of the extended format or an empty input list
		if txFlags, err = d.ReadUint8(); err != nil {
			return nil, errors.Wrap(err, "failed to read flags")
		}
		if txFlags != 0 {
			if inputs, err = deserializeInputs(d); err != nil {
				return nil, err
			}
			if mtx.Outputs, err = deserializeOutputs(d, compat); err != nil {
				return nil, err
			}
		}
	} else {
		if mtx.Outputs, err = deserializeOutputs(d, compat); err != nil {
			return nil, err
		}
	}
	mtx.Inputs = inputs

	if !compat {
		if mtx.Issuances, err = deserializeIssuances(d, len(inputs)); err != nil {
			return nil, err
		}
		if err := mtx.Issuances.Validate(len(mtx.Inputs)); err != nil {
			return nil, err
		}
	}

	if txFlags&witnessFlag != 0 && allowWitness {
		txFlags ^= witnessFlag
		if err := mtx.Witness.deserialize(d, len(mtx.Inputs)); err != nil {
			return nil, err
		}
	}
	if txFlags&outputWitnessFlag != 0 && allowWitness && !compat {
		txFlags ^= outputWitnessFlag
		if err := deserializeOutputWitness(d, mtx.Outputs); err != nil {
			return nil, err
		}
	}
	if txFlags != 0 {
		return nil, errors.Wrapf(ErrUnknownOptionalData, "flags %#x", txFlags)
	}

	if mtx.LockTime, err = d.ReadUint32(); err != nil {
		return nil, errors.Wrap(err, "failed to read lock time")
	}
	return mtx, nil
}

func deserializeInputs(d *bufferutil.Deserializer) ([]*TxInput, error) {
	count, err := d.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read input count")
	}
	if count > uint64(d.Len()/minTxInSize) {
		return nil, errors.Wrapf(ErrTooManyInputs, "%d inputs", count)
	}
	if count == 0 {
		return nil, nil
	}

	inputs := make([]*TxInput, 0, count)
	for i := uint64(0); i < count; i++ {
		in := &TxInput{}
		if err := readHash(d, &in.PrevOut.Hash); err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		if in.PrevOut.Index, err = d.ReadUint32(); err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		script, err := d.ReadVarSlice()
		if err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		in.Script = nilIfEmpty(script)
		if in.Sequence, err = d.ReadUint32(); err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func deserializeOutputs(
	d *bufferutil.Deserializer, compat bool,
) ([]*TxOutput, error) {
	count, err := d.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read output count")
	}
	minSize := minTxOutSize
	if compat {
		minSize = minCompatTxOutSize
	}
	if count > uint64(d.Len()/minSize) {
		return nil, errors.Wrapf(ErrTooManyOutputs, "%d outputs", count)
	}
	if count == 0 {
		return nil, nil
	}

	outputs := make([]*TxOutput, 0, count)
	for i := uint64(0); i < count; i++ {
		out := &TxOutput{}
		if out.Value, err = DeserializeValue(d, compat); err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
		script, err := d.ReadVarSlice()
		if err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
		out.Script = nilIfEmpty(script)
		outputs = append(outputs, out)
	}
	return outputs, nil
}
