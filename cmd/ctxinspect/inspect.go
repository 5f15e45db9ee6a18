package main

import (
	"context"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/amount"
	"github.com/vulpemventures/go-elements-ct/block"
	"github.com/vulpemventures/go-elements-ct/elementsutil"
	"github.com/vulpemventures/go-elements-ct/network"
	"github.com/vulpemventures/go-elements-ct/sigcache"
	"github.com/vulpemventures/go-elements-ct/transaction"
)

type valueSummary struct {
	Kind          string `json:"kind"`
	Discriminant  byte   `json:"discriminant"`
	Amount        *int64 `json:"amount,omitempty"`
	Commitment    string `json:"commitment,omitempty"`
	RangeProofLen int    `json:"rangeProofLen,omitempty"`
	NonceLen      int    `json:"nonceLen,omitempty"`
}

type inputSummary struct {
	PrevOut     string   `json:"prevOut"`
	Script      string   `json:"script,omitempty"`
	Sequence    uint32   `json:"sequence"`
	Witness     []string `json:"witness,omitempty"`
	Generation  bool     `json:"generation,omitempty"`
	Reissuance  bool     `json:"reissuance,omitempty"`
	IssuedAsset string   `json:"issuedAsset,omitempty"`
}

type outputSummary struct {
	Value  valueSummary `json:"value"`
	Script string       `json:"script,omitempty"`
}

type generationSummary struct {
	Input            int          `json:"input"`
	Amount           valueSummary `json:"amount"`
	IssuanceTokens   uint64       `json:"issuanceTokens"`
	ReissuanceTokens uint64       `json:"reissuanceTokens"`
}

type reissuanceSummary struct {
	Input   int          `json:"input"`
	Entropy string       `json:"entropy"`
	Asset   string       `json:"asset"`
	Amount  valueSummary `json:"amount"`
	Kind    string       `json:"kind"`
}

type txSummary struct {
	TxID          string              `json:"txid"`
	WTxID         string              `json:"wtxid"`
	Version       int32               `json:"version"`
	LockTime      uint32              `json:"locktime"`
	Fee           *int64              `json:"fee,omitempty"`
	ParentFormat  bool                `json:"parentFormat"`
	Size          int                 `json:"size"`
	Weight        int                 `json:"weight"`
	VSize         int                 `json:"vsize"`
	Inputs        []inputSummary      `json:"inputs"`
	Outputs       []outputSummary     `json:"outputs"`
	Generations   []generationSummary `json:"generations,omitempty"`
	Reissuances   []reissuanceSummary `json:"reissuances,omitempty"`
	ExplicitTotal string              `json:"explicitTotal"`
}

type blockSummary struct {
	Hash             string      `json:"hash"`
	Version          uint32      `json:"version"`
	PrevBlockHash    string      `json:"prevBlockHash"`
	MerkleRoot       string      `json:"merkleRoot"`
	MerkleRootValid  bool        `json:"merkleRootValid"`
	Timestamp        uint32      `json:"timestamp"`
	Height           uint32      `json:"height"`
	DynamicFederated bool        `json:"dynamicFederated"`
	Transactions     []txSummary `json:"transactions"`
}

type verifySummary struct {
	Checked int            `json:"checked"`
	Valid   bool           `json:"valid"`
	Error   string         `json:"error,omitempty"`
	Cache   sigcache.Stats `json:"cache"`
}

type report struct {
	Transaction *txSummary     `json:"transaction,omitempty"`
	Block       *blockSummary  `json:"block,omitempty"`
	Verify      *verifySummary `json:"verify,omitempty"`
}

func summarizeValue(v transaction.Value) valueSummary {
	s := valueSummary{
		Kind:          v.Kind().String(),
		Discriminant:  v.Discriminant(),
		RangeProofLen: len(v.RangeProof),
		NonceLen:      len(v.NonceCommitment),
	}
	if a, err := v.Amount(); err == nil {
		s.Amount = &a
	}
	if c, err := v.Commitment(); err == nil {
		s.Commitment = elementsutil.CommitmentFromBytes(c)
	}
	return s
}

// summarizeTx describes tx. Explicit output amounts are totalled under
// policyAsset, since outputs do not name their asset.
func summarizeTx(
	tx *transaction.Transaction, policyAsset amount.AssetID,
) (*txSummary, error) {
	s := &txSummary{
		TxID:         tx.TxHash().String(),
		WTxID:        tx.WitnessHash().String(),
		Version:      tx.Version(),
		LockTime:     tx.LockTime(),
		ParentFormat: tx.Fee() == transaction.FeeBitcoinTx,
		Size:         tx.SerializeSize(0),
		Weight:       tx.Weight(),
		VSize:        tx.VirtualSize(),
	}
	if !s.ParentFormat {
		fee := tx.Fee()
		s.Fee = &fee
	}

	for i, in := range tx.Inputs() {
		is := inputSummary{
			PrevOut:  in.PrevOut.String(),
			Script:   hex.EncodeToString(in.Script),
			Sequence: in.Sequence,
		}
		for _, item := range tx.InputWitness(i) {
			is.Witness = append(is.Witness, hex.EncodeToString(item))
		}
		if gen, ok := tx.Generation(i); ok {
			is.Generation = true
			entropy, err := transaction.ComputeEntropy(in.PrevOut, gen.Nonce)
			if err != nil {
				return nil, err
			}
			is.IssuedAsset = transaction.CalculateAsset(entropy).String()
			s.Generations = append(s.Generations, generationSummary{
				Input:            i,
				Amount:           summarizeValue(gen.Amount),
				IssuanceTokens:   gen.IssuanceTokens,
				ReissuanceTokens: gen.ReissuanceTokens,
			})
		}
		if re, ok := tx.Reissuance(i); ok {
			is.Reissuance = true
			kind := "blinded"
			switch {
			case re.IsInflation():
				kind = "inflation"
			case re.IsDeflation():
				kind = "deflation"
			}
			s.Reissuances = append(s.Reissuances, reissuanceSummary{
				Input:   i,
				Entropy: re.Entropy.String(),
				Asset:   transaction.CalculateAsset(re.Entropy).String(),
				Amount:  summarizeValue(re.Amount),
				Kind:    kind,
			})
		}
		s.Inputs = append(s.Inputs, is)
	}

	total := amount.Map{}
	for i, out := range tx.Outputs() {
		s.Outputs = append(s.Outputs, outputSummary{
			Value:  summarizeValue(out.Value),
			Script: hex.EncodeToString(out.Script),
		})
		a, err := out.Value.Amount()
		if err != nil {
			continue
		}
		total, err = amount.CheckedAdd(total, amount.New(policyAsset, a))
		if err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
	}
	if !total.MoneyRange() {
		log.Warnf("Explicit outputs of %s are out of money range: %s", s.TxID, total)
	}
	s.ExplicitTotal = total.String()
	return s, nil
}

func summarizeBlock(
	b *block.Block, policyAsset amount.AssetID,
) (*blockSummary, error) {
	hash, err := b.Header.BlockHash()
	if err != nil {
		return nil, err
	}
	root := b.CalcMerkleRoot()
	s := &blockSummary{
		Hash:            hash.String(),
		Version:         b.Header.Version,
		PrevBlockHash:   b.Header.PrevBlockHash.String(),
		MerkleRoot:      b.Header.MerkleRoot.String(),
		MerkleRootValid: root == b.Header.MerkleRoot,
		Timestamp:       b.Header.Timestamp,
		Height:          b.Header.Height,
	}
	if b.Header.ExtData != nil {
		s.DynamicFederated = b.Header.ExtData.IsDyna
	}
	for i, tx := range b.Transactions {
		txs, err := summarizeTx(tx, policyAsset)
		if err != nil {
			return nil, errors.Wrapf(err, "transaction %d", i)
		}
		s.Transactions = append(s.Transactions, *txs)
	}
	return s, nil
}

// verifyProofs checks the range proofs of every blinded output of txs. A
// failed check is reported in the summary rather than returned.
func verifyProofs(
	ctx context.Context, cfg config, txs []*transaction.Transaction,
	verifier sigcache.RangeProofVerifier,
) (*verifySummary, error) {
	tag, err := elementsutil.CommitmentToBytes(cfg.AssetTag)
	if err != nil {
		return nil, errors.Wrap(err, "invalid asset tag")
	}
	caches, err := sigcache.NewCaches(cfg.cacheConfig())
	if err != nil {
		return nil, err
	}

	checked := 0
	for _, tx := range txs {
		for _, out := range tx.Outputs() {
			if out.Value.IsCommitment() {
				checked++
			}
		}
	}

	err = (&block.Block{Transactions: txs}).VerifyRangeProofs(ctx, block.VerifyOptions{
		Caches:   caches,
		Verifier: verifier,
		AssetTag: block.FixedAssetTag(tag),
		Workers:  cfg.Workers,
	})
	stats := caches.RangeProofs.Stats()
	s := &verifySummary{
		Checked: checked,
		Valid:   err == nil,
		Cache:   stats,
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.Error = err.Error()
	}
	return s, nil
}

// inspect decodes raw according to cfg and builds the report.
func inspect(
	ctx context.Context, cfg config, raw []byte,
	verifier sigcache.RangeProofVerifier,
) (*report, error) {
	net, err := network.ByName(cfg.Network)
	if err != nil {
		return nil, err
	}
	policyAsset, err := net.PolicyAsset()
	if err != nil {
		return nil, err
	}

	flags := cfg.serializeFlags()
	r := &report{}
	var txs []*transaction.Transaction

	if cfg.Block {
		b, err := block.NewFromHex(hex.EncodeToString(raw), flags)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode block")
		}
		if r.Block, err = summarizeBlock(b, policyAsset); err != nil {
			return nil, err
		}
		txs = b.Transactions
		log.Debugf("Decoded block %s with %d transactions", r.Block.Hash, len(txs))
	} else {
		tx, err := transaction.NewTxFromBytes(raw, flags)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode transaction")
		}
		if r.Transaction, err = summarizeTx(tx, policyAsset); err != nil {
			return nil, err
		}
		txs = []*transaction.Transaction{tx}
		log.Debugf("Decoded %s", tx)
	}

	if cfg.Verify {
		v, err := verifyProofs(ctx, cfg, txs, verifier)
		if err != nil {
			return nil, err
		}
		r.Verify = v
	}
	return r, nil
}
