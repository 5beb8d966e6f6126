package service

import (
	"context"
	"fmt"
	"math/big"

	"custody-bridge/internal/core/domain"
	"custody-bridge/internal/core/ports"
	"custody-bridge/internal/metrics"
	"custody-bridge/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// VaultServiceImpl implements ports.AssetVaultService.
type VaultServiceImpl struct {
	custody    ports.CustodyRepository
	ledger     ports.ItemLedger
	resolver   ports.AddressResolver
	eventRepo  ports.EventRepository
	events     ports.EventService
	transactor ports.DBTransactor
	processor  common.Address
	vault      common.Address
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	log        zerolog.Logger
}

// NewVaultService creates a new VaultServiceImpl. vault is the account that
// owns custodied items on the settlement layer. m may be nil.
func NewVaultService(
	custody ports.CustodyRepository,
	ledger ports.ItemLedger,
	resolver ports.AddressResolver,
	eventRepo ports.EventRepository,
	events ports.EventService,
	transactor ports.DBTransactor,
	processor common.Address,
	vault common.Address,
	m *metrics.Metrics,
	log zerolog.Logger,
) *VaultServiceImpl {
	return &VaultServiceImpl{
		custody:    custody,
		ledger:     ledger,
		resolver:   resolver,
		eventRepo:  eventRepo,
		events:     events,
		transactor: transactor,
		processor:  processor,
		vault:      vault,
		metrics:    m,
		tracer:     otel.Tracer(tracerName),
		log:        log,
	}
}

// MatchDeposit records that the item was moved into custody under handleID.
// The settlement transfer into the vault has already happened.
func (s *VaultServiceImpl) MatchDeposit(ctx context.Context, req ports.MatchDepositRequest) (err error) {
	defer func() { s.metrics.ObserveCustody("deposit", err) }()

	if err := requireProcessor(s.processor, req.Caller); err != nil {
		return err
	}
	if req.HandleID == nil || req.ItemID == nil {
		return apperror.Validation("handle_id and item_id are required")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	item := domain.HeldItem{Collection: req.Collection, ItemID: req.ItemID}
	inserted, err := s.custody.Insert(ctx, dbTx, req.HandleID, item)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("insert custody record: %w", err))
	}
	if !inserted {
		return apperror.ErrDuplicateCustody()
	}

	event := domain.NewBridgeEvent(domain.EventItemDeposited, map[string]string{
		"handle_id":  req.HandleID.String(),
		"collection": req.Collection.Hex(),
		"item_id":    req.ItemID.String(),
	})
	if err := s.eventRepo.Create(ctx, dbTx, &event); err != nil {
		return apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.events.Publish(ctx, event)

	s.log.Info().
		Str("handle_id", req.HandleID.String()).
		Str("collection", req.Collection.Hex()).
		Str("item_id", req.ItemID.String()).
		Msg("deposit matched")

	return nil
}

// Convert releases the item held under InputA.ID to addresses[AuxData].
func (s *VaultServiceImpl) Convert(ctx context.Context, req domain.ConversionRequest) (res *domain.ConversionResult, err error) {
	ctx, span := s.tracer.Start(ctx, "vault.Convert", conversionAttributes(req))
	defer func() {
		s.metrics.ObserveConversion("vault", err)
		s.metrics.ObserveCustody("withdraw", err)
		endSpan(span, err)
	}()

	if err := requireProcessor(s.processor, req.Caller); err != nil {
		return nil, err
	}
	if req.InputA.Kind != domain.AssetKindHandle {
		return nil, apperror.ErrInvalidInputAssetA()
	}
	if req.OutputA.Kind != domain.AssetKindNative {
		return nil, apperror.ErrInvalidOutputAssetA()
	}
	if req.InputA.ID == nil {
		return nil, apperror.Validation("input_a.id is required")
	}
	handleID := req.InputA.ID

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rec, err := s.custody.GetForUpdate(ctx, dbTx, handleID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock custody record: %w", err))
	}
	held, ok := rec.(domain.HeldItem)
	if !ok {
		return nil, apperror.ErrEmptyCustody()
	}

	to, found, err := s.resolver.Resolve(ctx, req.AuxData)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !found {
		return nil, apperror.ErrUnresolvedAddress()
	}

	if err := s.ledger.Transfer(ctx, dbTx, held.Collection, held.ItemID, s.vault, to); err != nil {
		return nil, apperror.ErrSettlementFailure(fmt.Errorf("transfer item %s of %s: %w", held.ItemID, held.Collection.Hex(), err))
	}

	if err := s.custody.Delete(ctx, dbTx, handleID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("clear custody record: %w", err))
	}

	event := domain.NewBridgeEvent(domain.EventItemWithdrawn, map[string]string{
		"handle_id":  handleID.String(),
		"collection": held.Collection.Hex(),
		"item_id":    held.ItemID.String(),
		"to":         to.Hex(),
	})
	if err := s.eventRepo.Create(ctx, dbTx, &event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.events.Publish(ctx, event)

	s.log.Info().
		Str("handle_id", handleID.String()).
		Str("collection", held.Collection.Hex()).
		Str("item_id", held.ItemID.String()).
		Str("to", to.Hex()).
		Uint64("registry_id", req.AuxData).
		Msg("item withdrawn")

	return domain.SyncResult(zero(), zero()), nil
}

// Tokens returns tokens[handleID].
func (s *VaultServiceImpl) Tokens(ctx context.Context, handleID *big.Int) (domain.CustodyRecord, error) {
	rec, err := s.custody.Get(ctx, handleID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get custody record: %w", err))
	}
	return rec, nil
}
