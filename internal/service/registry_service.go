package service

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"custody-bridge/internal/core/domain"
	"custody-bridge/internal/core/ports"
	"custody-bridge/internal/metrics"
	"custody-bridge/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RegistryServiceImpl implements ports.AddressRegistryService.
type RegistryServiceImpl struct {
	repo       ports.RegistryRepository
	eventRepo  ports.EventRepository
	events     ports.EventService
	transactor ports.DBTransactor
	processor  common.Address
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	log        zerolog.Logger
}

// NewRegistryService creates a new RegistryServiceImpl. m may be nil.
func NewRegistryService(
	repo ports.RegistryRepository,
	eventRepo ports.EventRepository,
	events ports.EventService,
	transactor ports.DBTransactor,
	processor common.Address,
	m *metrics.Metrics,
	log zerolog.Logger,
) *RegistryServiceImpl {
	return &RegistryServiceImpl{
		repo:       repo,
		eventRepo:  eventRepo,
		events:     events,
		transactor: transactor,
		processor:  processor,
		metrics:    m,
		tracer:     otel.Tracer(tracerName),
		log:        log,
	}
}

// Convert runs the two-phase registration protocol.
//
// Phase 1 (NATIVE -> HANDLE, amount 1) only gates issuance and returns MaxUint160.
// Phase 2 (HANDLE -> HANDLE) registers address(amount) under the next counter value.
func (s *RegistryServiceImpl) Convert(ctx context.Context, req domain.ConversionRequest) (res *domain.ConversionResult, err error) {
	ctx, span := s.tracer.Start(ctx, "registry.Convert", conversionAttributes(req))
	defer func() {
		s.metrics.ObserveConversion("registry", err)
		endSpan(span, err)
	}()

	if err := requireProcessor(s.processor, req.Caller); err != nil {
		return nil, err
	}
	if req.InputA.Kind == domain.AssetKindNone || req.InputA.Kind == domain.AssetKindFungible {
		return nil, apperror.ErrInvalidInputAssetA()
	}
	if req.OutputA.Kind != domain.AssetKindHandle {
		return nil, apperror.ErrInvalidOutputAssetA()
	}

	switch req.InputA.Kind {
	case domain.AssetKindNative:
		if !domain.IsOne(req.TotalInputValue) {
			return nil, apperror.ErrInvalidAmount()
		}
		return domain.SyncResult(new(big.Int).Set(domain.MaxUint160), zero()), nil

	case domain.AssetKindHandle:
		addr, err := domain.AmountToAddress(req.TotalInputValue)
		if err != nil {
			return nil, apperror.ErrInvalidAmount()
		}
		if _, err := s.register(ctx, addr, domain.RegistrationSourceConversion); err != nil {
			return nil, err
		}
		return domain.SyncResult(zero(), zero()), nil

	default:
		return nil, apperror.ErrInvalidCombination()
	}
}

// RegisterWithdrawAddress appends to directly. Open to any caller.
func (s *RegistryServiceImpl) RegisterWithdrawAddress(ctx context.Context, to common.Address) (uint64, error) {
	return s.register(ctx, to, domain.RegistrationSourceDirect)
}

// register is shared by both entry points. The counter only advances inside the transaction.
func (s *RegistryServiceImpl) register(ctx context.Context, addr common.Address, source domain.RegistrationSource) (uint64, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	id, err := s.repo.NextID(ctx, dbTx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("next registry id: %w", err))
	}

	entry := &domain.RegistryEntry{
		ID:        id,
		Address:   addr,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, dbTx, entry); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("insert registry entry: %w", err))
	}

	event := domain.NewBridgeEvent(domain.EventAddressRegistered, map[string]string{
		"id":      strconv.FormatUint(id, 10),
		"address": addr.Hex(),
	})
	if err := s.eventRepo.Create(ctx, dbTx, &event); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.events.Publish(ctx, event)
	s.metrics.IncRegistration(string(source))

	s.log.Info().
		Uint64("registry_id", id).
		Str("address", addr.Hex()).
		Str("source", string(source)).
		Msg("address registered")

	return id, nil
}

// Address returns addresses[id].
func (s *RegistryServiceImpl) Address(ctx context.Context, id uint64) (*domain.RegistryEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get registry entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrNotFound("Registry entry")
	}
	return entry, nil
}

// AddressCount returns the current counter value.
func (s *RegistryServiceImpl) AddressCount(ctx context.Context) (uint64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("count registry entries: %w", err))
	}
	return n, nil
}

// Resolve implements ports.AddressResolver. Id 0 never resolves.
func (s *RegistryServiceImpl) Resolve(ctx context.Context, id uint64) (common.Address, bool, error) {
	if id == 0 {
		return common.Address{}, false, nil
	}
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("resolve registry entry %d: %w", id, err)
	}
	if entry == nil {
		return common.Address{}, false, nil
	}
	return entry.Address, true, nil
}
