package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"custody-bridge/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// CustodyRepo implements ports.CustodyRepository.
// Only held items are stored; a missing row is EmptyCustody.
type CustodyRepo struct {
	pool Pool
}

// NewCustodyRepo creates a new CustodyRepo.
func NewCustodyRepo(pool Pool) *CustodyRepo {
	return &CustodyRepo{pool: pool}
}

// Get fetches tokens[handleID] without locking.
func (r *CustodyRepo) Get(ctx context.Context, handleID *big.Int) (domain.CustodyRecord, error) {
	query := `SELECT collection, item_id::text FROM custody_records WHERE handle_id = $1::numeric`
	return scanCustody(r.pool.QueryRow(ctx, query, handleID.String()))
}

// GetForUpdate fetches and locks the custody row.
// This MUST be called within a transaction.
func (r *CustodyRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, handleID *big.Int) (domain.CustodyRecord, error) {
	query := `SELECT collection, item_id::text FROM custody_records WHERE handle_id = $1::numeric FOR UPDATE`
	return scanCustody(tx.QueryRow(ctx, query, handleID.String()))
}

func scanCustody(row pgx.Row) (domain.CustodyRecord, error) {
	var collection, itemID string
	if err := row.Scan(&collection, &itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmptyCustody{}, nil
		}
		return nil, fmt.Errorf("get custody record: %w", err)
	}

	id, ok := new(big.Int).SetString(itemID, 10)
	if !ok {
		return nil, fmt.Errorf("get custody record: malformed item id %q", itemID)
	}
	return domain.HeldItem{Collection: common.HexToAddress(collection), ItemID: id}, nil
}

// Insert stores a held item. It returns false, without error, if the handle is already occupied.
func (r *CustodyRepo) Insert(ctx context.Context, tx pgx.Tx, handleID *big.Int, item domain.HeldItem) (bool, error) {
	query := `INSERT INTO custody_records (handle_id, collection, item_id)
		VALUES ($1::numeric, $2, $3::numeric)
		ON CONFLICT (handle_id) DO NOTHING`

	tag, err := tx.Exec(ctx, query, handleID.String(), item.Collection.Hex(), item.ItemID.String())
	if err != nil {
		return false, fmt.Errorf("insert custody record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete empties the handle within a transaction.
func (r *CustodyRepo) Delete(ctx context.Context, tx pgx.Tx, handleID *big.Int) error {
	query := `DELETE FROM custody_records WHERE handle_id = $1::numeric`

	tag, err := tx.Exec(ctx, query, handleID.String())
	if err != nil {
		return fmt.Errorf("delete custody record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("custody record not found: %s", handleID)
	}
	return nil
}
