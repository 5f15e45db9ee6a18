// Package network holds the parameters that distinguish the chains sharing
// the confidential transaction format.
package network

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/elementsutil"
)

// ErrUnknownNetwork is returned by ByName for an unregistered name.
var ErrUnknownNetwork = errors.New("unknown network")

// Network describes a chain.
type Network struct {
	Name string
	// Policy asset hash in display (reversed) order. Fees are paid in it.
	AssetID string
}

// Liquid defines the network parameters for the main Liquid network.
var Liquid = Network{
	Name:    "liquid",
	AssetID: "6f0279e9ed041c3d710a9f57d0c02928416460c4b722ae3457a11eec381c526d",
}

// Testnet defines the network parameters for the Liquid test network.
var Testnet = Network{
	Name:    "testnet",
	AssetID: "144c654344aa716d6f3abcc1ca90e5641e4e2a7f633bc09fe3baf64585819a49",
}

// Regtest defines the network parameters for the regression test network.
var Regtest = Network{
	Name:    "regtest",
	AssetID: "5ac9f65c0efcc4775e0baec4ec03abdde22473cd3cf33c0419ca290e0751b225",
}

var networks = []*Network{&Liquid, &Testnet, &Regtest}

// ByName returns the registered network with the given name, ignoring case.
func ByName(name string) (*Network, error) {
	for _, n := range networks {
		if strings.EqualFold(n.Name, name) {
			return n, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownNetwork, "%q", name)
}

// PolicyAsset returns the policy asset as a hash in internal byte order.
func (n *Network) PolicyAsset() (chainhash.Hash, error) {
	h, err := elementsutil.AssetIDToBytes(n.AssetID)
	if err != nil {
		return chainhash.Hash{}, errors.Wrapf(err, "invalid asset of network %s", n.Name)
	}
	return h, nil
}
