package memory

import (
	"context"
	"math/big"

	"custody-bridge/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// --- Registry ---

// RegistryRepo implements ports.RegistryRepository.
type RegistryRepo struct{ s *Store }

func NewRegistryRepo(s *Store) *RegistryRepo { return &RegistryRepo{s: s} }

func (r *RegistryRepo) NextID(ctx context.Context, tx pgx.Tx) (uint64, error) {
	t, err := asTx(tx)
	if err != nil {
		return 0, err
	}
	next := r.current(t) + 1
	t.counter = &next
	return next, nil
}

func (r *RegistryRepo) current(t *Tx) uint64 {
	if t.counter != nil {
		return *t.counter
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.counter
}

func (r *RegistryRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.RegistryEntry) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.entries = append(t.entries, *entry)
	return nil
}

func (r *RegistryRepo) Get(ctx context.Context, id uint64) (*domain.RegistryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *RegistryRepo) Count(ctx context.Context) (uint64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.counter, nil
}

// --- Custody ---

// CustodyRepo implements ports.CustodyRepository.
type CustodyRepo struct{ s *Store }

func NewCustodyRepo(s *Store) *CustodyRepo { return &CustodyRepo{s: s} }

func (r *CustodyRepo) Get(ctx context.Context, handleID *big.Int) (domain.CustodyRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.custody[handleKey(handleID)]
	if !ok {
		return domain.EmptyCustody{}, nil
	}
	return cloneItem(item), nil
}

// GetForUpdate reads through the transaction's staged writes. Transactions are
// already serialized, so no further locking is needed.
func (r *CustodyRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, handleID *big.Int) (domain.CustodyRecord, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if staged, ok := t.custody[handleKey(handleID)]; ok {
		if staged == nil {
			return domain.EmptyCustody{}, nil
		}
		return cloneItem(*staged), nil
	}
	return r.Get(ctx, handleID)
}

func (r *CustodyRepo) Insert(ctx context.Context, tx pgx.Tx, handleID *big.Int, item domain.HeldItem) (bool, error) {
	rec, err := r.GetForUpdate(ctx, tx, handleID)
	if err != nil {
		return false, err
	}
	if !rec.IsEmpty() {
		return false, nil
	}
	t, _ := asTx(tx)
	held := cloneItem(item)
	t.custody[handleKey(handleID)] = &held
	return true, nil
}

func (r *CustodyRepo) Delete(ctx context.Context, tx pgx.Tx, handleID *big.Int) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.custody[handleKey(handleID)] = nil
	return nil
}

// --- Item ledger ---

// Ledger implements ports.ItemLedger over an ownership map.
type Ledger struct {
	s         *Store
	custodian *common.Address
}

func NewLedger(s *Store) *Ledger { return &Ledger{s: s} }

// PresumeCustodian makes items with no recorded owner count as held by owner.
// Standalone deployments use it with the vault address, since nothing else feeds the map.
func (l *Ledger) PresumeCustodian(owner common.Address) *Ledger {
	l.custodian = &owner
	return l
}

// Assign sets the owner of an item outside any transaction.
func (l *Ledger) Assign(collection common.Address, itemID *big.Int, owner common.Address) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.owners[itemKey{collection, itemID.String()}] = owner
}

// OwnerOf returns the committed owner of an item.
func (l *Ledger) OwnerOf(collection common.Address, itemID *big.Int) (common.Address, bool) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	owner, ok := l.s.owners[itemKey{collection, itemID.String()}]
	return owner, ok
}

func (l *Ledger) Transfer(ctx context.Context, tx pgx.Tx, collection common.Address, itemID *big.Int, from, to common.Address) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	key := itemKey{collection, itemID.String()}
	owner, ok := t.owners[key]
	if !ok {
		owner, ok = l.OwnerOf(collection, itemID)
	}
	if !ok && l.custodian != nil {
		owner, ok = *l.custodian, true
	}
	if !ok || owner != from {
		return ErrNotItemOwner
	}
	t.owners[key] = to
	return nil
}

// --- Events ---

// EventRepo implements ports.EventRepository.
type EventRepo struct{ s *Store }

func NewEventRepo(s *Store) *EventRepo { return &EventRepo{s: s} }

func (r *EventRepo) Create(ctx context.Context, tx pgx.Tx, event *domain.BridgeEvent) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.events = append(t.events, *event)
	return nil
}

// List returns the newest events first.
func (r *EventRepo) List(ctx context.Context, name domain.EventName, limit int) ([]domain.BridgeEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.BridgeEvent, 0, limit)
	for i := len(r.s.events) - 1; i >= 0 && len(out) < limit; i-- {
		ev := r.s.events[i]
		if name != "" && ev.Name != name {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
