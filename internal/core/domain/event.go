package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// EventName identifies a bridge event.
type EventName string

const (
	EventAddressRegistered EventName = "AddressRegistered"
	EventItemDeposited     EventName = "ItemDeposited"
	EventItemWithdrawn     EventName = "ItemWithdrawn"
)

var eventSignatures = map[EventName]string{
	EventAddressRegistered: "AddressRegistered(uint256,address)",
	EventItemDeposited:     "ItemDeposited(uint256,address,uint256)",
	EventItemWithdrawn:     "ItemWithdrawn(uint256,address,uint256,address)",
}

// Signature returns the canonical event signature.
func (n EventName) Signature() string {
	return eventSignatures[n]
}

// Topic returns the keccak-256 hash of the event signature.
func (n EventName) Topic() common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(n.Signature()))
	return common.BytesToHash(h.Sum(nil))
}

// BridgeEvent is an observable record of a successful mutation.
// Fields are strings so the payload survives every sink unchanged.
type BridgeEvent struct {
	ID        uuid.UUID         `json:"id"`
	Name      EventName         `json:"name"`
	Topic     string            `json:"topic"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewBridgeEvent stamps an event with an id, its topic and the current time.
func NewBridgeEvent(name EventName, fields map[string]string) BridgeEvent {
	return BridgeEvent{
		ID:        uuid.New(),
		Name:      name,
		Topic:     name.Topic().Hex(),
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}
}
