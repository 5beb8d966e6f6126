package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// AddressBits is the width of an account address.
const AddressBits = common.AddressLength * 8

var (
	// MaxUint160 is the largest amount that still encodes an address.
	MaxUint160 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), AddressBits), big.NewInt(1))

	ErrAmountTooWide = errors.New("amount does not fit in 160 bits")
	ErrNegative      = errors.New("amount is negative")
)

// AmountToAddress reinterprets amount as a 160-bit address.
// Amounts wider than an address are rejected rather than truncated.
func AmountToAddress(amount *big.Int) (common.Address, error) {
	if amount == nil || amount.Sign() < 0 {
		return common.Address{}, ErrNegative
	}
	if amount.BitLen() > AddressBits {
		return common.Address{}, ErrAmountTooWide
	}
	return common.BigToAddress(amount), nil
}

// AddressToAmount is the inverse of AmountToAddress.
func AddressToAmount(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

// ParseUint256 parses a decimal (or 0x-prefixed hex) unsigned 256-bit integer.
func ParseUint256(s string) (*big.Int, error) {
	v, ok := math.ParseBig256(s)
	if !ok || s == "" {
		return nil, fmt.Errorf("invalid uint256 %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("invalid uint256 %q: %w", s, ErrNegative)
	}
	return v, nil
}

// IsOne reports whether v is exactly one unit.
func IsOne(v *big.Int) bool {
	return v != nil && v.Cmp(big.NewInt(1)) == 0
}
