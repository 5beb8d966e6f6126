package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// ErrNotItemOwner is returned when the sender does not own the item being moved.
var ErrNotItemOwner = errors.New("sender does not own the item")

// ItemLedger implements ports.ItemLedger over the item_owners table.
type ItemLedger struct {
	pool      Pool
	custodian *common.Address
}

// NewItemLedger creates a new ItemLedger.
func NewItemLedger(pool Pool) *ItemLedger {
	return &ItemLedger{pool: pool}
}

// PresumeCustodian makes Transfer treat an item with no item_owners row as
// owned by owner. Use it when no settlement writer records deposits.
func (l *ItemLedger) PresumeCustodian(owner common.Address) *ItemLedger {
	l.custodian = &owner
	return l
}

// Transfer moves ownership inside tx, guarded on the current owner.
func (l *ItemLedger) Transfer(ctx context.Context, tx pgx.Tx, collection common.Address, itemID *big.Int, from, to common.Address) error {
	query := `UPDATE item_owners SET owner = $4, updated_at = NOW()
		WHERE collection = $1 AND item_id = $2::numeric AND owner = $3`

	tag, err := tx.Exec(ctx, query, collection.Hex(), itemID.String(), from.Hex(), to.Hex())
	if err != nil {
		return fmt.Errorf("transfer item: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if l.custodian == nil || from != *l.custodian {
		return ErrNotItemOwner
	}

	// Unrecorded items belong to the custodian; a recorded one with another owner does not.
	query = `INSERT INTO item_owners (collection, item_id, owner)
		VALUES ($1, $2::numeric, $3)
		ON CONFLICT (collection, item_id) DO NOTHING`

	tag, err = tx.Exec(ctx, query, collection.Hex(), itemID.String(), to.Hex())
	if err != nil {
		return fmt.Errorf("transfer unrecorded item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotItemOwner
	}
	return nil
}

// Assign records owner as the holder of an item, replacing any previous owner.
func (l *ItemLedger) Assign(ctx context.Context, collection common.Address, itemID *big.Int, owner common.Address) error {
	query := `INSERT INTO item_owners (collection, item_id, owner)
		VALUES ($1, $2::numeric, $3)
		ON CONFLICT (collection, item_id) DO UPDATE SET owner = EXCLUDED.owner, updated_at = NOW()`

	if _, err := l.pool.Exec(ctx, query, collection.Hex(), itemID.String(), owner.Hex()); err != nil {
		return fmt.Errorf("assign item: %w", err)
	}
	return nil
}

// OwnerOf returns the current owner, or false if the item is unknown.
func (l *ItemLedger) OwnerOf(ctx context.Context, collection common.Address, itemID *big.Int) (common.Address, bool, error) {
	query := `SELECT owner FROM item_owners WHERE collection = $1 AND item_id = $2::numeric`

	var owner string
	err := l.pool.QueryRow(ctx, query, collection.Hex(), itemID.String()).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Address{}, false, nil
		}
		return common.Address{}, false, fmt.Errorf("get item owner: %w", err)
	}
	return common.HexToAddress(owner), true, nil
}
