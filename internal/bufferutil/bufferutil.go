package bufferutil

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// MaxVarSliceSize is the largest length prefix accepted by ReadVarSlice.
const MaxVarSliceSize = 4000000

var littleEndian = binary.LittleEndian

// ErrSliceTooLarge is returned when a length prefix exceeds MaxVarSliceSize.
var ErrSliceTooLarge = errors.New("length prefix exceeds maximum slice size")

// Serializer implements methods that help to serialize an Elements transaction.
type Serializer struct {
	buffer *bytes.Buffer
}

// NewSerializer returns an instance of Serializer. When buf is not nil its
// content is copied at the start of the serializer's buffer.
func NewSerializer(buf *bytes.Buffer) *Serializer {
	buffer := bytes.NewBuffer([]byte{})
	if buf != nil {
		buffer.Write(buf.Bytes())
	}
	return &Serializer{buffer}
}

// Bytes returns the serializer's buffer.
func (s *Serializer) Bytes() []byte {
	return s.buffer.Bytes()
}

// Len returns the number of bytes written so far.
func (s *Serializer) Len() int {
	return s.buffer.Len()
}

// WriteUint8 writes the given uint8 value to serializer's buffer.
func (s *Serializer) WriteUint8(val uint8) error {
	return s.buffer.WriteByte(val)
}

// WriteUint32 writes the given uint32 value to serializer's buffer.
func (s *Serializer) WriteUint32(val uint32) error {
	var b [4]byte
	littleEndian.PutUint32(b[:], val)
	return s.WriteSlice(b[:])
}

// WriteInt32 writes the given int32 value to serializer's buffer.
func (s *Serializer) WriteInt32(val int32) error {
	return s.WriteUint32(uint32(val))
}

// WriteUint64 writes the given uint64 value to serializer's buffer.
func (s *Serializer) WriteUint64(val uint64) error {
	var b [8]byte
	littleEndian.PutUint64(b[:], val)
	return s.WriteSlice(b[:])
}

// WriteInt64 writes the given int64 value to serializer's buffer.
func (s *Serializer) WriteInt64(val int64) error {
	return s.WriteUint64(uint64(val))
}

// WriteVarInt serializes the given value to serializer's buffer
// using a variable number of bytes depending on its value.
func (s *Serializer) WriteVarInt(val uint64) error {
	return wire.WriteVarInt(s.buffer, 0, val)
}

// WriteSlice appends the given byte array to the serializer's buffer.
func (s *Serializer) WriteSlice(val []byte) error {
	_, err := s.buffer.Write(val)
	return err
}

// WriteVarSlice appends the length of the given byte array as var int
// and the byte array itself to the serializer's buffer.
func (s *Serializer) WriteVarSlice(val []byte) error {
	if err := s.WriteVarInt(uint64(len(val))); err != nil {
		return err
	}
	return s.WriteSlice(val)
}

// WriteVector appends an array of array bytes to the serializer's buffer.
func (s *Serializer) WriteVector(v [][]byte) error {
	if err := s.WriteVarInt(uint64(len(v))); err != nil {
		return err
	}
	for _, val := range v {
		if err := s.WriteVarSlice(val); err != nil {
			return err
		}
	}
	return nil
}

// Deserializer implements methods that help to deserialize an Elements
// transaction. Every read that runs past the end of the buffer fails with
// io.ErrUnexpectedEOF.
type Deserializer struct {
	buffer *bytes.Buffer
}

// NewDeserializer returns an instance of Deserializer.
func NewDeserializer(buffer *bytes.Buffer) *Deserializer {
	return &Deserializer{buffer}
}

// Len returns the number of unread bytes.
func (d *Deserializer) Len() int {
	return d.buffer.Len()
}

// ReadUint8 reads a uint8 value from deserializer's buffer.
func (d *Deserializer) ReadUint8() (uint8, error) {
	b, err := d.buffer.ReadByte()
	if err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	return b, nil
}

// ReadUint32 reads a uint32 value from deserializer's buffer.
func (d *Deserializer) ReadUint32() (uint32, error) {
	b, err := d.ReadSlice(4)
	if err != nil {
		return 0, err
	}
	return littleEndian.Uint32(b), nil
}

// ReadInt32 reads a int32 value from deserializer's buffer.
func (d *Deserializer) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a uint64 value from deserializer's buffer.
func (d *Deserializer) ReadUint64() (uint64, error) {
	b, err := d.ReadSlice(8)
	if err != nil {
		return 0, err
	}
	return littleEndian.Uint64(b), nil
}

// ReadInt64 reads a int64 value from deserializer's buffer.
func (d *Deserializer) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

// ReadVarInt reads a variable length integer from deserializer's buffer and
// returns it as a uint64. Non-canonical encodings are rejected.
func (d *Deserializer) ReadVarInt() (uint64, error) {
	return wire.ReadVarInt(d.buffer, 0)
}

// ReadSlice reads the next n bytes from the deserializer's buffer.
func (d *Deserializer) ReadSlice(n uint) ([]byte, error) {
	if uint(d.buffer.Len()) < n {
		return nil, io.ErrUnexpectedEOF
	}
	decoded := make([]byte, n)
	if _, err := io.ReadFull(d.buffer, decoded); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	return decoded, nil
}

// ReadVarSlice first reads the length n of the bytes, then reads the next n
// bytes.
func (d *Deserializer) ReadVarSlice() ([]byte, error) {
	n, err := d.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if n > MaxVarSliceSize {
		return nil, errors.Wrapf(ErrSliceTooLarge, "got %d bytes", n)
	}
	return d.ReadSlice(uint(n))
}

// ReadVector reads the length n of the array of bytes, then reads the next n
// array bytes.
func (d *Deserializer) ReadVector() ([][]byte, error) {
	n, err := d.ReadVarInt()
	if err != nil {
		return nil, err
	}
	// every item takes at least one byte for its own length prefix
	if n > uint64(d.buffer.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	v := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		val, err := d.ReadVarSlice()
		if err != nil {
			return nil, err
		}
		v = append(v, val)
	}
	return v, nil
}
