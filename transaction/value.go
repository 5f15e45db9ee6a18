package transaction

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/internal/bufferutil"
)

// Value discriminants.
const (
	PrefixExplicitCompat byte = 0x00
	PrefixExplicitNative byte = 0x01
	PrefixLegacyEven     byte = 0x02
	PrefixLegacyOdd      byte = 0x03
	PrefixCommitmentEven byte = 0x08
	PrefixCommitmentOdd  byte = 0x09
	PrefixNull           byte = 0xff
)

const (
	// ExplicitValueSize is the native size of an explicit value, prefix included.
	ExplicitValueSize = 9
	// CommittedValueSize is the native size of a value commitment, prefix included.
	CommittedValueSize = 33
	// CommitmentSize is the size of a commitment payload.
	CommitmentSize = 32
	// NonceCommitmentSize is the size of the ephemeral nonce commitment.
	NonceCommitmentSize = 33
)

// ValueKind is the variant held by a Value.
type ValueKind uint8

const (
	// ValueNull is the canonical "unset" value (discriminant 0xff).
	ValueNull ValueKind = iota
	// ValueExplicitCompat is an explicit amount carried in compatibility
	// context (discriminant 0).
	ValueExplicitCompat
	// ValueExplicitNative is an explicit amount (discriminant 1).
	ValueExplicitNative
	// ValueLegacy holds the historical discriminants 2 and 3, which carry
	// no payload.
	ValueLegacy
	// ValueCommitment is a blinded value (discriminants 8 and 9).
	ValueCommitment
	// ValueUnrecognized is any other discriminant; it behaves as null.
	ValueUnrecognized
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueExplicitCompat:
		return "explicit-compat"
	case ValueExplicitNative:
		return "explicit"
	case ValueLegacy:
		return "legacy"
	case ValueCommitment:
		return "commitment"
	default:
		return "unrecognized"
	}
}

// Value is the value field of an output or of an issuance record. It holds
// either an explicit amount or a commitment. The range proof and the nonce
// commitment belong to the value but are only serialized through the output
// witness channel.
//
// The zero Value is null.
type Value struct {
	kind       ValueKind
	prefix     byte
	amount     int64
	commitment [CommitmentSize]byte

	RangeProof      []byte
	NonceCommitment []byte
}

// NullValue returns the canonical unset value.
func NullValue() Value {
	return Value{}
}

// NewValueFromAmount returns an explicit value for the given amount.
func NewValueFromAmount(amount int64) Value {
	return Value{
		kind:   ValueExplicitNative,
		prefix: PrefixExplicitNative,
		amount: amount,
	}
}

// NewValueFromCommitment returns a blinded value from a 33-byte serialized
// commitment (prefix 0x08 or 0x09 followed by 32 bytes).
func NewValueFromCommitment(commitment []byte) (Value, error) {
	if len(commitment) != CommittedValueSize {
		return Value{}, errors.Wrapf(
			ErrInvalidCommitment, "expected %d bytes, got %d",
			CommittedValueSize, len(commitment),
		)
	}
	prefix := commitment[0]
	if prefix != PrefixCommitmentEven && prefix != PrefixCommitmentOdd {
		return Value{}, errors.Wrapf(
			ErrInvalidCommitment, "invalid prefix %#x", prefix,
		)
	}
	v := Value{kind: ValueCommitment, prefix: prefix}
	copy(v.commitment[:], commitment[1:])
	return v, nil
}

// compatValue is only reachable by decoding in compatibility mode.
func compatValue(amount int64) Value {
	return Value{
		kind:   ValueExplicitCompat,
		prefix: PrefixExplicitCompat,
		amount: amount,
	}
}

// Kind returns the variant held by the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// Discriminant returns the leading byte of the value.
func (v Value) Discriminant() byte {
	if v.kind == ValueNull {
		return PrefixNull
	}
	return v.prefix
}

// IsNull returns true for the unset value and for unrecognized discriminants.
func (v Value) IsNull() bool {
	return v.kind == ValueNull || v.kind == ValueUnrecognized
}

// IsAmount returns true for explicit values, in both contexts.
func (v Value) IsAmount() bool {
	return v.kind == ValueExplicitCompat || v.kind == ValueExplicitNative
}

// IsCommitment returns true for blinded values.
func (v Value) IsCommitment() bool {
	return v.kind == ValueCommitment
}

// IsValid returns true if the value is either an explicit amount or a
// commitment.
func (v Value) IsValid() bool {
	return v.IsAmount() || v.IsCommitment()
}

// Amount returns the explicit amount.
func (v Value) Amount() (int64, error) {
	if !v.IsAmount() {
		return 0, errors.Wrapf(ErrNotExplicit, "value is %s", v.kind)
	}
	return v.amount, nil
}

// Commitment returns the 33-byte serialized commitment.
func (v Value) Commitment() ([]byte, error) {
	if !v.IsCommitment() {
		return nil, errors.Wrapf(ErrNotCommitment, "value is %s", v.kind)
	}
	return append([]byte{v.prefix}, v.commitment[:]...), nil
}

// Bytes returns the native core encoding of the value: the discriminant
// followed by its fixed payload.
func (v Value) Bytes() []byte {
	s := bufferutil.NewSerializer(nil)
	// serializing to memory only fails on invalid kinds, which are not
	// representable here
	_ = v.SerializeCore(s, false)
	return s.Bytes()
}

// WitnessIsNull returns true if neither range proof nor nonce commitment
// are set.
func (v Value) WitnessIsNull() bool {
	return len(v.RangeProof) == 0 && len(v.NonceCommitment) == 0
}

// Equal compares the core fields and the witness fields of two values.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind &&
		v.Discriminant() == o.Discriminant() &&
		v.amount == o.amount &&
		v.commitment == o.commitment &&
		bytes.Equal(v.RangeProof, o.RangeProof) &&
		bytes.Equal(v.NonceCommitment, o.NonceCommitment)
}

// Copy returns a deep copy of the value.
func (v Value) Copy() Value {
	c := v
	c.RangeProof = copyBytes(v.RangeProof)
	c.NonceCommitment = copyBytes(v.NonceCommitment)
	return c
}

// SerializeCore writes the core encoding of the value. In compatibility
// mode only explicit amounts can be written, as a plain 8-byte little-endian
// signed integer. In native mode the discriminant is followed by an 8-byte
// big-endian amount, a 32-byte commitment or nothing.
func (v Value) SerializeCore(s *bufferutil.Serializer, compat bool) error {
	if compat {
		if !v.IsAmount() {
			return errors.Wrapf(
				ErrNotExplicit, "cannot encode %s value in compatibility mode",
				v.kind,
			)
		}
		return s.WriteInt64(v.amount)
	}

	if err := s.WriteUint8(v.Discriminant()); err != nil {
		return err
	}
	switch v.kind {
	case ValueExplicitCompat, ValueExplicitNative:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.amount))
		return s.WriteSlice(b[:])
	case ValueCommitment:
		return s.WriteSlice(v.commitment[:])
	default:
		return nil
	}
}

// SerializeWitness writes the range proof and the nonce commitment.
func (v Value) SerializeWitness(s *bufferutil.Serializer) error {
	if err := s.WriteVarSlice(v.RangeProof); err != nil {
		return err
	}
	return s.WriteVarSlice(v.NonceCommitment)
}

// DeserializeValue reads the core encoding of a value. An unrecognized
// discriminant is not an error: it yields a null value. A recognized
// discriminant without its full payload is a framing error.
func DeserializeValue(d *bufferutil.Deserializer, compat bool) (Value, error) {
	if compat {
		amount, err := d.ReadInt64()
		if err != nil {
			return Value{}, errors.Wrap(err, "failed to read amount")
		}
		return compatValue(amount), nil
	}

	prefix, err := d.ReadUint8()
	if err != nil {
		return Value{}, errors.Wrap(err, "failed to read value discriminant")
	}

	switch prefix {
	case PrefixExplicitCompat, PrefixExplicitNative:
		b, err := d.ReadSlice(ExplicitValueSize - 1)
		if err != nil {
			return Value{}, errors.Wrapf(
				ErrValueFraming, "explicit value: %s", err,
			)
		}
		kind := ValueExplicitNative
		if prefix == PrefixExplicitCompat {
			kind = ValueExplicitCompat
		}
		return Value{
			kind:   kind,
			prefix: prefix,
			amount: int64(binary.BigEndian.Uint64(b)),
		}, nil
	case PrefixLegacyEven, PrefixLegacyOdd:
		return Value{kind: ValueLegacy, prefix: prefix}, nil
	case PrefixCommitmentEven, PrefixCommitmentOdd:
		b, err := d.ReadSlice(CommitmentSize)
		if err != nil {
			return Value{}, errors.Wrapf(
				ErrValueFraming, "value commitment: %s", err,
			)
		}
		v := Value{kind: ValueCommitment, prefix: prefix}
		copy(v.commitment[:], b)
		return v, nil
	case PrefixNull:
		return Value{}, nil
	default:
		return Value{kind: ValueUnrecognized, prefix: prefix}, nil
	}
}

// DeserializeWitness reads the range proof and the nonce commitment into v.
func (v *Value) DeserializeWitness(d *bufferutil.Deserializer) error {
	rangeProof, err := d.ReadVarSlice()
	if err != nil {
		return errors.Wrap(err, "failed to read range proof")
	}
	nonce, err := d.ReadVarSlice()
	if err != nil {
		return errors.Wrap(err, "failed to read nonce commitment")
	}
	if len(nonce) != 0 && len(nonce) != NonceCommitmentSize {
		return errors.Wrapf(
			ErrInvalidNonceCommitment, "got %d bytes", len(nonce),
		)
	}
	v.RangeProof = nilIfEmpty(rangeProof)
	v.NonceCommitment = nilIfEmpty(nonce)
	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
