package ports

import (
	"context"
	"math/big"

	"custody-bridge/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// RegistryRepository defines persistence for the counter namespace.
// NextID is the only operation that advances the counter.
type RegistryRepository interface {
	NextID(ctx context.Context, tx pgx.Tx) (uint64, error)
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.RegistryEntry) error
	// Get returns nil, nil when no entry exists for id.
	Get(ctx context.Context, id uint64) (*domain.RegistryEntry, error)
	Count(ctx context.Context) (uint64, error)
}

// CustodyRepository defines persistence for custody records.
// A handle without a stored row is EmptyCustody.
type CustodyRepository interface {
	Get(ctx context.Context, handleID *big.Int) (domain.CustodyRecord, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, handleID *big.Int) (domain.CustodyRecord, error)
	// Insert returns false when the handle already holds an item.
	Insert(ctx context.Context, tx pgx.Tx, handleID *big.Int, item domain.HeldItem) (bool, error)
	Delete(ctx context.Context, tx pgx.Tx, handleID *big.Int) error
}

// ItemLedger is the settlement layer's view of collectible ownership.
type ItemLedger interface {
	// Transfer moves itemID of collection from -> to inside tx.
	// It fails if from is not the current owner.
	Transfer(ctx context.Context, tx pgx.Tx, collection common.Address, itemID *big.Int, from, to common.Address) error
}

// EventRepository persists emitted events alongside the mutation that produced them.
type EventRepository interface {
	Create(ctx context.Context, tx pgx.Tx, event *domain.BridgeEvent) error
	List(ctx context.Context, name domain.EventName, limit int) ([]domain.BridgeEvent, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
