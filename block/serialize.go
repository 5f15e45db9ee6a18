package block

import (
	"github.com/vulpemventures/go-elements-ct/internal/bufferutil"
	"github.com/vulpemventures/go-elements-ct/transaction"
)

func newSerializer() *bufferutil.Serializer {
	return bufferutil.NewSerializer(nil)
}

// Serialize encodes the block. Transactions are encoded with flags.
func (b *Block) Serialize(flags transaction.SerializeFlags) ([]byte, error) {
	s := newSerializer()

	err := b.Header.SerializeHeader(s)
	if err != nil {
		return nil, err
	}

	err = SerializeTransactions(s, b.Transactions, flags)
	if err != nil {
		return nil, err
	}

	return s.Bytes(), nil
}

func SerializeTransactions(
	s *bufferutil.Serializer,
	txs []*transaction.Transaction,
	flags transaction.SerializeFlags,
) error {
	err := s.WriteVarInt(uint64(len(txs)))
	if err != nil {
		return err
	}
	for _, v := range txs {
		txBytes, err := v.Serialize(flags)
		if err != nil {
			return err
		}

		err = s.WriteSlice(txBytes)
		if err != nil {
			return err
		}
	}

	return nil
}

// SerializeHeader writes the full header, block signature included.
func (h *Header) SerializeHeader(
	s *bufferutil.Serializer,
) error {
	return h.serialize(s, true)
}

func (h *Header) serialize(
	s *bufferutil.Serializer,
	withSignature bool,
) error {
	ext := h.ExtData
	if ext == nil {
		ext = &ExtData{}
	}

	version := h.Version &^ dynaFlag
	if ext.IsDyna {
		version |= dynaFlag
	}
	err := s.WriteUint32(version)
	if err != nil {
		return err
	}

	err = s.WriteSlice(h.PrevBlockHash[:])
	if err != nil {
		return err
	}

	err = s.WriteSlice(h.MerkleRoot[:])
	if err != nil {
		return err
	}

	err = s.WriteUint32(h.Timestamp)
	if err != nil {
		return err
	}

	err = s.WriteUint32(h.Height)
	if err != nil {
		return err
	}

	return ext.serialize(s, withSignature)
}

func (e *ExtData) serialize(
	s *bufferutil.Serializer,
	withSignature bool,
) error {
	if e.IsDyna {
		dynaFed := e.DynamicFederation
		if dynaFed == nil {
			dynaFed = &DynamicFederation{}
		}
		return dynaFed.serialize(s, withSignature)
	}

	proof := e.Proof
	if proof == nil {
		proof = &Proof{}
	}
	return proof.serialize(s, withSignature)
}

func (p *Proof) serialize(
	s *bufferutil.Serializer,
	withSignature bool,
) error {
	err := s.WriteVarSlice(p.Challenge)
	if err != nil {
		return err
	}

	if !withSignature {
		return nil
	}
	return s.WriteVarSlice(p.Solution)
}

func (d *DynamicFederation) serialize(
	s *bufferutil.Serializer,
	withSignature bool,
) error {
	err := d.Current.serialize(s)
	if err != nil {
		return err
	}

	err = d.Proposed.serialize(s)
	if err != nil {
		return err
	}

	if !withSignature {
		return nil
	}
	return s.WriteVector(d.SignBlockWitness)
}

func (d *DynamicFederationParams) serialize(
	s *bufferutil.Serializer,
) error {
	switch {
	case d == nil || (d.CompactParams == nil && d.FullParams == nil):
		return s.WriteUint8(null)
	case d.CompactParams != nil:
		err := s.WriteUint8(compact)
		if err != nil {
			return err
		}
		return d.CompactParams.serialize(s)
	default:
		err := s.WriteUint8(full)
		if err != nil {
			return err
		}
		return d.FullParams.serialize(s)
	}
}

func (c *CompactParams) serialize(
	s *bufferutil.Serializer,
) error {
	err := s.WriteVarSlice(c.SignBlockScript)
	if err != nil {
		return err
	}

	err = s.WriteUint32(c.SignBlockWitnessLimit)
	if err != nil {
		return err
	}

	return s.WriteSlice(c.ElidedRoot[:])
}

func (f *FullParams) serialize(
	s *bufferutil.Serializer,
) error {
	err := s.WriteVarSlice(f.SignBlockScript)
	if err != nil {
		return err
	}

	err = s.WriteUint32(f.SignBlockWitnessLimit)
	if err != nil {
		return err
	}

	err = s.WriteVarSlice(f.FedpegProgram)
	if err != nil {
		return err
	}

	err = s.WriteVarSlice(f.FedpegScript)
	if err != nil {
		return err
	}

	return s.WriteVector(f.ExtensionSpace)
}
