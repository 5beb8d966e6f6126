// Package memory is a process-local storage driver. It backs dev mode and
// end-to-end tests with the same transactional behavior as the postgres driver:
// transactions are serialized and their writes stay invisible until Commit.
package memory

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"custody-bridge/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnsupported  = errors.New("memory: operation not supported")
	ErrForeignTx    = errors.New("memory: transaction was not started by this store")
	ErrTxClosed     = errors.New("memory: transaction already closed")
	ErrNotItemOwner = errors.New("memory: sender does not own the item")
)

type itemKey struct {
	collection common.Address
	itemID     string
}

// Store holds all bridge state.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	counter uint64
	entries map[uint64]domain.RegistryEntry
	custody map[string]domain.HeldItem
	owners  map[itemKey]common.Address
	events  []domain.BridgeEvent
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[uint64]domain.RegistryEntry),
		custody: make(map[string]domain.HeldItem),
		owners:  make(map[itemKey]common.Address),
	}
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Begin implements ports.DBTransactor. It blocks until no other transaction is open.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	locked := make(chan struct{})
	go func() {
		s.txMu.Lock()
		close(locked)
	}()

	select {
	case <-locked:
		return &Tx{store: s, custody: make(map[string]*domain.HeldItem), owners: make(map[itemKey]common.Address)}, nil
	case <-ctx.Done():
		// Release the lock once the pending acquisition completes.
		go func() {
			<-locked
			s.txMu.Unlock()
		}()
		return nil, ctx.Err()
	}
}

// Tx stages writes and applies them on Commit. It implements pgx.Tx so it can
// flow through the repository ports; SQL methods are unsupported.
type Tx struct {
	store  *Store
	closed bool

	counter *uint64
	entries []domain.RegistryEntry
	custody map[string]*domain.HeldItem // nil value: deleted
	owners  map[itemKey]common.Address
	events  []domain.BridgeEvent
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	s := t.store
	s.mu.Lock()
	if t.counter != nil {
		s.counter = *t.counter
	}
	for _, e := range t.entries {
		s.entries[e.ID] = e
	}
	for k, item := range t.custody {
		if item == nil {
			delete(s.custody, k)
			continue
		}
		s.custody[k] = *item
	}
	for k, owner := range t.owners {
		s.owners[k] = owner
	}
	s.events = append(s.events, t.events...)
	s.mu.Unlock()

	t.close()
	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.close()
	return nil
}

func (t *Tx) close() {
	t.closed = true
	t.store.txMu.Unlock()
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, ErrUnsupported }
func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, ErrUnsupported
}
func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, ErrUnsupported
}
func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrUnsupported
}
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, ErrUnsupported
}
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *Tx) Conn() *pgx.Conn                                             { return nil }

func asTx(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, ErrForeignTx
	}
	if t.closed {
		return nil, ErrTxClosed
	}
	return t, nil
}

func handleKey(id *big.Int) string { return id.String() }

func cloneItem(item domain.HeldItem) domain.HeldItem {
	return domain.HeldItem{Collection: item.Collection, ItemID: new(big.Int).Set(item.ItemID)}
}
