package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKind tags a conversion leg.
type AssetKind string

const (
	AssetKindNone     AssetKind = "NONE"
	AssetKindNative   AssetKind = "NATIVE"
	AssetKindFungible AssetKind = "FUNGIBLE"
	AssetKindHandle   AssetKind = "HANDLE"
)

// IsValid reports whether k is one of the known asset kinds.
func (k AssetKind) IsValid() bool {
	switch k {
	case AssetKindNone, AssetKindNative, AssetKindFungible, AssetKindHandle:
		return true
	}
	return false
}

// AssetDescriptor describes one leg of a conversion.
// Token is only meaningful for FUNGIBLE legs.
type AssetDescriptor struct {
	ID    *big.Int       `json:"id"`
	Token common.Address `json:"token"`
	Kind  AssetKind      `json:"kind"`
}

// NoAsset returns the empty leg.
func NoAsset() AssetDescriptor {
	return AssetDescriptor{ID: new(big.Int), Kind: AssetKindNone}
}

// Handle returns an opaque-handle leg with the given id.
func Handle(id *big.Int) AssetDescriptor {
	return AssetDescriptor{ID: id, Kind: AssetKindHandle}
}

// Native returns a native-value leg.
func Native() AssetDescriptor {
	return AssetDescriptor{ID: new(big.Int), Kind: AssetKindNative}
}
