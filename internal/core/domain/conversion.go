package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ConversionRequest is the four-leg conversion call. It is never persisted.
type ConversionRequest struct {
	Caller          common.Address
	InputA          AssetDescriptor
	InputB          AssetDescriptor
	OutputA         AssetDescriptor
	OutputB         AssetDescriptor
	TotalInputValue *big.Int
	InteractionID   *big.Int
	AuxData         uint64
	Beneficiary     common.Address
}

// ConversionResult is returned by every accepted conversion.
type ConversionResult struct {
	OutputValueA *big.Int
	OutputValueB *big.Int
	IsAsync      bool
}

// SyncResult builds a synchronous result. Conversions never complete asynchronously.
func SyncResult(a, b *big.Int) *ConversionResult {
	return &ConversionResult{OutputValueA: a, OutputValueB: b}
}
