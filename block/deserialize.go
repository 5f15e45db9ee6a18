package block

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/internal/bufferutil"
	"github.com/vulpemventures/go-elements-ct/transaction"
)

// ErrBadParamsType is returned for an unknown dynamic federation parameters
// discriminant.
var ErrBadParamsType = errors.New("bad serialize type for dynafed parameters")

// minTxSize bounds the transaction count of a block by its remaining bytes.
const minTxSize = 10

func deserialize(buf *bytes.Buffer, flags transaction.SerializeFlags) (*Block, error) {
	header, err := DeserializeHeader(buf)
	if err != nil {
		return nil, err
	}

	transactions, err := DeserializeTransactions(buf, flags)
	if err != nil {
		return nil, err
	}

	return &Block{
		Header:       header,
		Transactions: transactions,
	}, nil
}

func DeserializeHeader(
	buf *bytes.Buffer,
) (*Header, error) {
	d := bufferutil.NewDeserializer(buf)

	version, err := d.ReadUint32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read version")
	}
	isDyna := version&dynaFlag != 0

	header := &Header{Version: version &^ dynaFlag}

	if err := readHash(d, header.PrevBlockHash[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read previous block hash")
	}
	if err := readHash(d, header.MerkleRoot[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read merkle root")
	}

	if header.Timestamp, err = d.ReadUint32(); err != nil {
		return nil, errors.Wrap(err, "failed to read timestamp")
	}
	if header.Height, err = d.ReadUint32(); err != nil {
		return nil, errors.Wrap(err, "failed to read height")
	}

	if header.ExtData, err = deserializeExtData(d, isDyna); err != nil {
		return nil, err
	}
	return header, nil
}

func readHash(d *bufferutil.Deserializer, dst []byte) error {
	b, err := d.ReadSlice(hashSize)
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func deserializeExtData(
	d *bufferutil.Deserializer,
	isDyna bool,
) (*ExtData, error) {
	if isDyna {
		dynamicFederation, err := deserializeDynamicFederation(d)
		if err != nil {
			return nil, err
		}
		return &ExtData{DynamicFederation: dynamicFederation, IsDyna: true}, nil
	}

	proof, err := deserializeProof(d)
	if err != nil {
		return nil, err
	}
	return &ExtData{Proof: proof}, nil
}

func deserializeDynamicFederation(
	d *bufferutil.Deserializer,
) (*DynamicFederation, error) {
	currentParams, err := deserializeDynamicFederationParams(d)
	if err != nil {
		return nil, errors.Wrap(err, "current params")
	}

	proposedParams, err := deserializeDynamicFederationParams(d)
	if err != nil {
		return nil, errors.Wrap(err, "proposed params")
	}

	signBlockWitness, err := d.ReadVector()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sign block witness")
	}

	return &DynamicFederation{
		Current:          currentParams,
		Proposed:         proposedParams,
		SignBlockWitness: signBlockWitness,
	}, nil
}

func deserializeDynamicFederationParams(
	d *bufferutil.Deserializer,
) (*DynamicFederationParams, error) {
	serializeType, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}

	switch serializeType {
	case null:
		return nil, nil
	case compact:
		compactParams, err := deserializeCompactParams(d)
		if err != nil {
			return nil, err
		}
		return &DynamicFederationParams{CompactParams: compactParams}, nil
	case full:
		fullParams, err := deserializeFullParams(d)
		if err != nil {
			return nil, err
		}
		return &DynamicFederationParams{FullParams: fullParams}, nil
	default:
		return nil, errors.Wrapf(ErrBadParamsType, "%d", serializeType)
	}
}

func deserializeCompactParams(
	d *bufferutil.Deserializer,
) (*CompactParams, error) {
	signBlockScript, err := d.ReadVarSlice()
	if err != nil {
		return nil, err
	}

	signBlockWitnessLimit, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}

	params := &CompactParams{
		SignBlockScript:       signBlockScript,
		SignBlockWitnessLimit: signBlockWitnessLimit,
	}
	if err := readHash(d, params.ElidedRoot[:]); err != nil {
		return nil, err
	}
	return params, nil
}

func deserializeFullParams(
	d *bufferutil.Deserializer,
) (*FullParams, error) {
	signBlockScript, err := d.ReadVarSlice()
	if err != nil {
		return nil, err
	}

	signBlockWitnessLimit, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}

	fedpegProgram, err := d.ReadVarSlice()
	if err != nil {
		return nil, err
	}

	fedpegScript, err := d.ReadVarSlice()
	if err != nil {
		return nil, err
	}

	extensionSpace, err := d.ReadVector()
	if err != nil {
		return nil, err
	}

	return &FullParams{
		SignBlockScript:       signBlockScript,
		SignBlockWitnessLimit: signBlockWitnessLimit,
		FedpegProgram:         fedpegProgram,
		FedpegScript:          fedpegScript,
		ExtensionSpace:        extensionSpace,
	}, nil
}

func deserializeProof(
	d *bufferutil.Deserializer,
) (*Proof, error) {
	challenge, err := d.ReadVarSlice()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read challenge")
	}

	solution, err := d.ReadVarSlice()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read solution")
	}

	return &Proof{
		Challenge: challenge,
		Solution:  solution,
	}, nil
}

func DeserializeTransactions(
	buf *bytes.Buffer,
	flags transaction.SerializeFlags,
) ([]*transaction.Transaction, error) {
	d := bufferutil.NewDeserializer(buf)

	txCount, err := d.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read transaction count")
	}
	if txCount > uint64(buf.Len()/minTxSize) {
		return nil, errors.Errorf("%d transactions exceed remaining data", txCount)
	}

	txs := make([]*transaction.Transaction, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx, err := transaction.NewTxFromBuffer(buf, flags)
		if err != nil {
			return nil, errors.Wrapf(err, "transaction %d", i)
		}
		txs = append(txs, tx)
	}

	return txs, nil
}
