package elementsutil

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

const (
	// ExplicitPrefix is the discriminant of an explicit value in native mode.
	ExplicitPrefix = byte(1)
	// ExplicitCompatPrefix is the discriminant of an explicit value decoded
	// from a compatibility-mode encoding.
	ExplicitCompatPrefix = byte(0)
)

// ValueToBytes converts a satoshi amount to a 9-byte explicit Elements value:
// the explicit prefix followed by the amount in big-endian order.
func ValueToBytes(val int64) []byte {
	res := make([]byte, 9)
	res[0] = ExplicitPrefix
	binary.BigEndian.PutUint64(res[1:], uint64(val))
	return res
}

// ValueFromBytes converts a 9-byte explicit Elements value to a satoshi
// amount.
func ValueFromBytes(val []byte) (int64, error) {
	if len(val) != 9 {
		return 0, errors.New("invalid elements value length")
	}
	if !isExplicitPrefix(val[0]) {
		return 0, errors.New("invalid prefix")
	}
	return int64(binary.BigEndian.Uint64(val[1:])), nil
}

// ValidElementValue returns whether val is a well formed explicit value,
// that is whether ValueFromBytes accepts it.
func ValidElementValue(val []byte) bool {
	return len(val) == 9 && isExplicitPrefix(val[0])
}

func isExplicitPrefix(b byte) bool {
	return b == ExplicitPrefix || b == ExplicitCompatPrefix
}

// AssetIDFromBytes returns the display (reversed) hex string of an asset id.
func AssetIDFromBytes(buffer []byte) string {
	return hex.EncodeToString(ReverseBytes(buffer))
}

// AssetIDToBytes parses a display hex asset id into its internal byte order.
func AssetIDToBytes(str string) (chainhash.Hash, error) {
	h, err := chainhash.NewHashFromStr(str)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return *h, nil
}

func TxIDFromBytes(buffer []byte) string {
	return hex.EncodeToString(ReverseBytes(buffer))
}

func TxIDToBytes(str string) ([]byte, error) {
	buffer, err := hex.DecodeString(str)
	if err != nil {
		return nil, err
	}
	return ReverseBytes(buffer), nil
}

func CommitmentFromBytes(buffer []byte) string {
	return hex.EncodeToString(buffer)
}

func CommitmentToBytes(str string) ([]byte, error) {
	return hex.DecodeString(str)
}

// ReverseBytes returns a copy of the given byte slice with elems in reverse order.
func ReverseBytes(buf []byte) []byte {
	if len(buf) < 1 {
		return buf
	}
	tmp := make([]byte, len(buf))
	copy(tmp, buf)
	for i := len(tmp)/2 - 1; i >= 0; i-- {
		j := len(tmp) - 1 - i
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp
}
