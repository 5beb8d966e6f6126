package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RegistrationSource records which entry point created a registry entry.
type RegistrationSource string

const (
	RegistrationSourceConversion RegistrationSource = "conversion"
	RegistrationSourceDirect     RegistrationSource = "direct"
)

// RegistryEntry is one resolved address in the counter namespace.
// Entries are append-only.
type RegistryEntry struct {
	ID        uint64             `json:"id"`
	Address   common.Address     `json:"address"`
	Source    RegistrationSource `json:"-"`
	CreatedAt time.Time          `json:"created_at"`
}
