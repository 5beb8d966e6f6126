package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CustodyRecord is what the vault holds for a handle: EmptyCustody or HeldItem.
type CustodyRecord interface {
	custody()
	// IsEmpty reports whether no item is held.
	IsEmpty() bool
}

// EmptyCustody means nothing is held under the handle.
type EmptyCustody struct{}

func (EmptyCustody) custody()      {}
func (EmptyCustody) IsEmpty() bool { return true }

// HeldItem is a collectible held under a handle. A zero Collection is a valid held item.
type HeldItem struct {
	Collection common.Address `json:"collection"`
	ItemID     *big.Int       `json:"item_id"`
}

func (HeldItem) custody()      {}
func (HeldItem) IsEmpty() bool { return false }
