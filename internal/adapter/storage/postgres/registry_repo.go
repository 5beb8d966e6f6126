package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"custody-bridge/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// RegistryRepo implements ports.RegistryRepository.
type RegistryRepo struct {
	pool Pool
}

// NewRegistryRepo creates a new RegistryRepo.
func NewRegistryRepo(pool Pool) *RegistryRepo {
	return &RegistryRepo{pool: pool}
}

// NextID advances the counter and returns the new value.
// The row lock is held until tx ends, so concurrent registrations serialize here.
func (r *RegistryRepo) NextID(ctx context.Context, tx pgx.Tx) (uint64, error) {
	query := `UPDATE registry_counter SET value = value + 1 WHERE id = 1 RETURNING value`

	var value int64
	if err := tx.QueryRow(ctx, query).Scan(&value); err != nil {
		return 0, fmt.Errorf("advance registry counter: %w", err)
	}
	return uint64(value), nil
}

// Insert appends a registry entry within a transaction.
func (r *RegistryRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.RegistryEntry) error {
	query := `INSERT INTO registry_entries (id, address, source, created_at) VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, int64(e.ID), e.Address.Hex(), string(e.Source), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert registry entry: %w", err)
	}
	return nil
}

// Get fetches addresses[id].
func (r *RegistryRepo) Get(ctx context.Context, id uint64) (*domain.RegistryEntry, error) {
	if id == 0 || id > math.MaxInt64 {
		return nil, nil
	}

	query := `SELECT id, address, source, created_at FROM registry_entries WHERE id = $1`

	var (
		rowID   int64
		address string
		source  string
		e       domain.RegistryEntry
	)
	err := r.pool.QueryRow(ctx, query, int64(id)).Scan(&rowID, &address, &source, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registry entry: %w", err)
	}
	e.ID = uint64(rowID)
	e.Address = common.HexToAddress(address)
	e.Source = domain.RegistrationSource(source)
	return &e, nil
}

// Count returns the current counter value.
func (r *RegistryRepo) Count(ctx context.Context) (uint64, error) {
	query := `SELECT value FROM registry_counter WHERE id = 1`

	var value int64
	if err := r.pool.QueryRow(ctx, query).Scan(&value); err != nil {
		return 0, fmt.Errorf("read registry counter: %w", err)
	}
	return uint64(value), nil
}
