package transaction

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/go-elements-ct/internal/bufferutil"
)

func newIssuingTx(t *testing.T, numInputs int) *MutableTransaction {
	mtx := NewMutableTransaction()
	mtx.Fee = 500
	for i := 0; i < numInputs; i++ {
		mtx.AddInput(NewTxInput(repeatHash(byte(i+1)), uint32(i)))
	}
	mtx.AddOutput(NewTxOutput(NewValueFromAmount(500), nil))
	return mtx
}

func TestIssuanceBitVectorInvariant(t *testing.T) {
	bits := []bool{true, false, true}

	tests := []struct {
		name    string
		records int
		err     error
	}{
		{"one record", 1, ErrIssuanceRecordCount},
		{"two records", 2, nil},
		{"three records", 3, ErrIssuanceRecordCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mtx := newIssuingTx(t, 3)
			mtx.GenerationBits = append([]bool{}, bits...)
			for i := 0; i < tt.records; i++ {
				mtx.Generations = append(mtx.Generations, AssetGeneration{
					Amount: NewValueFromAmount(int64(i + 1)),
				})
			}

			_, err := NewTransaction(mtx)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIssuanceBitsLength(t *testing.T) {
	mtx := newIssuingTx(t, 3)
	mtx.ReissuanceBits = []bool{true, false}
	mtx.Reissuances = []AssetReissuance{{Amount: NewValueFromAmount(1)}}

	_, err := NewTransaction(mtx)
	assert.True(t, errors.Is(err, ErrIssuanceBitsLength))

	mtx.ReissuanceBits = append(mtx.ReissuanceBits, false)
	_, err = NewTransaction(mtx)
	require.NoError(t, err)
}

func TestIssuanceLookup(t *testing.T) {
	mtx := newIssuingTx(t, 3)
	gen2 := AssetGeneration{Nonce: repeatHash(0x02), Amount: NewValueFromAmount(2)}
	gen0 := AssetGeneration{Nonce: repeatHash(0x00), Amount: NewValueFromAmount(1)}

	require.NoError(t, mtx.SetGeneration(3, 2, gen2))
	require.NoError(t, mtx.SetGeneration(3, 0, gen0))
	assert.Equal(t, []bool{true, false, true}, mtx.GenerationBits)
	require.Len(t, mtx.Generations, 2)
	assert.Equal(t, gen0.Nonce, mtx.Generations[0].Nonce)
	assert.Equal(t, gen2.Nonce, mtx.Generations[1].Nonce)

	// replacing keeps the record count
	gen2.IssuanceTokens = 5
	require.NoError(t, mtx.SetGeneration(3, 2, gen2))
	assert.Len(t, mtx.Generations, 2)

	err := mtx.SetGeneration(3, 3, gen0)
	assert.True(t, errors.Is(err, ErrInputIndexOutOfRange))

	tx, err := NewTransaction(mtx)
	require.NoError(t, err)

	g, ok := tx.Generation(2)
	require.True(t, ok)
	assert.Equal(t, uint64(5), g.IssuanceTokens)
	_, ok = tx.Generation(1)
	assert.False(t, ok)
	_, ok = tx.Reissuance(0)
	assert.False(t, ok)
}

func TestIssuanceRoundTrip(t *testing.T) {
	mtx := newIssuingTx(t, 2)
	require.NoError(t, mtx.SetGeneration(2, 0, AssetGeneration{
		Nonce:          repeatHash(0x42),
		Amount:         NewValueFromAmount(1000),
		IssuanceTokens: 1,
	}))
	require.NoError(t, mtx.SetReissuance(2, 1, AssetReissuance{
		Entropy:       repeatHash(0x07),
		Amount:        blindedValue(t, 0x09),
		BlindingNonce: repeatHash(0x08),
	}))
	mtx.Witness = TxWitness{Inputs: []InputWitness{{{0x01}}}}

	tx, err := NewTransaction(mtx)
	require.NoError(t, err)

	for _, flags := range []SerializeFlags{0, NoWitness} {
		raw, err := tx.Serialize(flags)
		require.NoError(t, err)

		decoded, err := NewTxFromBytes(raw, flags)
		require.NoError(t, err)
		assert.Equal(t, tx.TxHash(), decoded.TxHash())
		assert.Equal(t, tx.Issuances(), decoded.Issuances())

		r, ok := decoded.Reissuance(1)
		require.True(t, ok)
		assert.True(t, r.Amount.IsCommitment())
		assert.False(t, r.IsInflation())
	}

	// issuance records are covered by the identity hash
	other := tx.ToMutable()
	other.Generations[0].IssuanceTokens = 2
	otherTx, err := NewTransaction(other)
	require.NoError(t, err)
	assert.NotEqual(t, tx.TxHash(), otherTx.TxHash())
}

func TestIssuancePaddingBits(t *testing.T) {
	tests := []struct {
		name      string
		raw       []byte
		numInputs int
		err       bool
	}{
		{"clean", []byte{0x03, 0x05, 0x00}, 3, false},
		{"padding set", []byte{0x03, 0x0d, 0x00}, 3, true},
		{"high bit set", []byte{0x03, 0x85, 0x00}, 3, true},
		{"missing bytes", []byte{0x09, 0x01}, 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := bufferutil.NewDeserializer(bytes.NewBuffer(tt.raw))
			bits, err := readBits(d, tt.numInputs)
			if tt.err {
				assert.True(t, errors.Is(err, ErrInvalidIssuanceBits))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []bool{true, false, true}, bits)
		})
	}
}

func TestIssuanceRecordsExceedData(t *testing.T) {
	s := bufferutil.NewSerializer(nil)
	require.NoError(t, writeBits(s, []bool{true, true}))
	require.NoError(t, s.WriteSlice(make([]byte, 60)))

	d := bufferutil.NewDeserializer(bytes.NewBuffer(s.Bytes()))
	_, err := deserializeIssuances(d, 2)
	assert.True(t, errors.Is(err, ErrInvalidIssuanceBits))
}

func TestIssuanceBitCountMustMatchInputs(t *testing.T) {
	// a huge bit count is rejected before anything is allocated for it
	s := bufferutil.NewSerializer(nil)
	require.NoError(t, s.WriteVarInt(1<<40))
	require.NoError(t, s.WriteSlice(make([]byte, 64)))

	d := bufferutil.NewDeserializer(bytes.NewBuffer(s.Bytes()))
	_, err := readBits(d, 3)
	assert.True(t, errors.Is(err, ErrIssuanceBitsLength))
	assert.Equal(t, 64, d.Len())

	s = bufferutil.NewSerializer(nil)
	require.NoError(t, writeBits(s, []bool{true, false}))
	d = bufferutil.NewDeserializer(bytes.NewBuffer(s.Bytes()))
	_, err = deserializeIssuances(d, 3)
	assert.True(t, errors.Is(err, ErrIssuanceBitsLength))

	s = bufferutil.NewSerializer(nil)
	require.NoError(t, writeBits(s, nil))
	require.NoError(t, writeBits(s, []bool{false, false, false}))
	d = bufferutil.NewDeserializer(bytes.NewBuffer(s.Bytes()))
	is, err := deserializeIssuances(d, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, is.ReissuanceBits)
}

func TestIssuanceEntropy(t *testing.T) {
	prevout := NewOutPoint(repeatHash(0x11), 1)
	contract := repeatHash(0x00)

	entropy, err := ComputeEntropy(prevout, contract)
	require.NoError(t, err)

	for _, tt := range []struct {
		prevout  OutPoint
		contract chainhash.Hash
		same     bool
	}{
		{prevout, contract, true},
		{NewOutPoint(repeatHash(0x11), 2), contract, false},
		{prevout, repeatHash(0x01), false},
	} {
		other, err := ComputeEntropy(tt.prevout, tt.contract)
		require.NoError(t, err)
		assert.Equal(t, tt.same, entropy == other)
	}

	asset := CalculateAsset(entropy)
	token := CalculateReissuanceToken(entropy, false)
	blindedToken := CalculateReissuanceToken(entropy, true)
	assert.NotEqual(t, asset, token)
	assert.NotEqual(t, token, blindedToken)
	assert.Equal(t, asset, CalculateAsset(entropy))
}

func TestIssuanceContractHash(t *testing.T) {
	contract := IssuanceContract{
		Name:      "Tiero Token",
		Ticker:    "TIERO",
		Version:   0,
		Precision: 8,
		PubKey:    "02a9a7399de89ec2e7de876bbe0b512f78f13d5d0a3315047e5b14109c8bac38f2",
		Entity: IssuanceEntity{
			Domain: "tiero.github.io",
		},
	}

	hash, err := contract.Hash()
	require.NoError(t, err)
	assert.Equal(
		t,
		"663847f2ea583c00704dd9264d3e21d683db4cc0ccf0c219432acfe93e36c4d5",
		hex.EncodeToString(hash[:]),
	)
	assert.Equal(
		t,
		"d5c4363ee9cf2a4319c2f0ccc04cdb83d6213e4d26d94d70003c58eaf2473866",
		hash.String(),
	)
}

func TestReissuanceKind(t *testing.T) {
	assert.True(t, AssetReissuance{Amount: NewValueFromAmount(10)}.IsInflation())
	assert.True(t, AssetReissuance{Amount: NewValueFromAmount(-10)}.IsDeflation())
	assert.False(t, AssetReissuance{Amount: NewValueFromAmount(-10)}.IsInflation())
	assert.False(t, AssetReissuance{}.IsDeflation())
}
