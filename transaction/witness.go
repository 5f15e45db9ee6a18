package transaction

import (
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/internal/bufferutil"
)

// InputWitness is the script witness stack of a single input.
type InputWitness [][]byte

// IsNull returns true if the stack has no items.
func (w InputWitness) IsNull() bool {
	return len(w) == 0
}

// Copy returns a deep copy of the witness stack.
func (w InputWitness) Copy() InputWitness {
	if w == nil {
		return nil
	}
	c := make(InputWitness, len(w))
	for i, item := range w {
		c[i] = append([]byte{}, item...)
	}
	return c
}

// TxWitness is the input witness channel of a transaction. Entries are
// index-aligned with the inputs and missing entries are treated as empty.
type TxWitness struct {
	Inputs []InputWitness
}

// IsEmpty returns true if the channel has no entries at all.
func (w *TxWitness) IsEmpty() bool {
	return len(w.Inputs) == 0
}

// IsNull returns true if every entry is empty.
func (w *TxWitness) IsNull() bool {
	for _, in := range w.Inputs {
		if !in.IsNull() {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the channel.
func (w TxWitness) Copy() TxWitness {
	if w.Inputs == nil {
		return TxWitness{}
	}
	c := TxWitness{Inputs: make([]InputWitness, len(w.Inputs))}
	for i, in := range w.Inputs {
		c.Inputs[i] = in.Copy()
	}
	return c
}

// serialize writes one stack per input. numInputs entries are always
// written, missing ones as empty stacks.
func (w *TxWitness) serialize(s *bufferutil.Serializer, numInputs int) error {
	for i := 0; i < numInputs; i++ {
		var stack InputWitness
		if i < len(w.Inputs) {
			stack = w.Inputs[i]
		}
		if err := s.WriteVector(stack); err != nil {
			return err
		}
	}
	return nil
}

// deserialize resizes the channel to numInputs and fills it. A channel
// whose entries are all empty is rejected.
func (w *TxWitness) deserialize(d *bufferutil.Deserializer, numInputs int) error {
	w.Inputs = make([]InputWitness, numInputs)
	for i := range w.Inputs {
		stack, err := d.ReadVector()
		if err != nil {
			return errors.Wrapf(err, "failed to read witness of input %d", i)
		}
		if len(stack) > 0 {
			w.Inputs[i] = stack
		}
	}
	if w.IsNull() {
		return ErrSuperfluousWitness
	}
	return nil
}

func outputWitnessIsNull(outputs []*TxOutput) bool {
	for _, out := range outputs {
		if !out.Value.WitnessIsNull() {
			return false
		}
	}
	return true
}

func serializeOutputWitness(s *bufferutil.Serializer, outputs []*TxOutput) error {
	for _, out := range outputs {
		if err := out.Value.SerializeWitness(s); err != nil {
			return err
		}
	}
	return nil
}

// deserializeOutputWitness fills the range proof and nonce commitment of
// every output. A channel whose pairs are all empty is rejected.
func deserializeOutputWitness(d *bufferutil.Deserializer, outputs []*TxOutput) error {
	for i, out := range outputs {
		if err := out.Value.DeserializeWitness(d); err != nil {
			return errors.Wrapf(err, "failed to read witness of output %d", i)
		}
	}
	if outputWitnessIsNull(outputs) {
		return ErrSuperfluousOutputWitness
	}
	return nil
}
