package transaction

import "github.com/pkg/errors"

// Framing errors. Any of them aborts the decoding of the whole transaction.
var (
	ErrValueFraming             = errors.New("truncated value payload")
	ErrInvalidNonceCommitment   = errors.New("invalid nonce commitment length")
	ErrSuperfluousWitness       = errors.New("superfluous witness record")
	ErrSuperfluousOutputWitness = errors.New("superfluous output witness record")
	ErrUnknownOptionalData      = errors.New("unknown transaction optional data")
	ErrTrailingData             = errors.New("unexpected data after transaction")
	ErrReservedFee              = errors.New("fee field holds the reserved parent-format sentinel")
	ErrTooManyInputs            = errors.New("input count exceeds remaining data")
	ErrTooManyOutputs           = errors.New("output count exceeds remaining data")
	ErrInvalidIssuanceBits      = errors.New("invalid issuance bit-vector")
)

// Construction and encoding errors.
var (
	ErrNotExplicit           = errors.New("value is not an explicit amount")
	ErrNotCommitment         = errors.New("value is not a commitment")
	ErrInvalidCommitment     = errors.New("invalid value commitment")
	ErrIssuanceBitsLength    = errors.New("issuance bit-vector length does not match input count")
	ErrIssuanceRecordCount   = errors.New("issuance record count does not match set bits")
	ErrIssuanceInParentTx    = errors.New("issuance records cannot be encoded in parent format")
	ErrTooManyInputWitnesses = errors.New("more input witnesses than inputs")
	ErrInputIndexOutOfRange  = errors.New("input index out of range")
)
