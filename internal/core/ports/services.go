package ports

import (
	"context"
	"math/big"
	"time"

	"custody-bridge/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, accessKey string, nonce string, ttl time.Duration) (bool, error)
}

// CallerDirectory resolves HMAC access keys to callers.
type CallerDirectory interface {
	Lookup(accessKey string) (*domain.Caller, bool)
}

// EventSink delivers a committed event to one downstream consumer.
type EventSink interface {
	Name() string
	Publish(ctx context.Context, event domain.BridgeEvent) error
}

// --- Service Ports (Business Logic) ---

// EventService fans committed events out to the configured sinks.
type EventService interface {
	Publish(ctx context.Context, event domain.BridgeEvent)
	Recent(ctx context.Context, name domain.EventName, limit int) ([]domain.BridgeEvent, error)
}

// AddressResolver is the read-only view of the registry the vault depends on.
type AddressResolver interface {
	// Resolve returns false when no entry exists for id.
	Resolve(ctx context.Context, id uint64) (common.Address, bool, error)
}

// AddressRegistryService defines the address registry.
type AddressRegistryService interface {
	AddressResolver
	Convert(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionResult, error)
	RegisterWithdrawAddress(ctx context.Context, to common.Address) (uint64, error)
	Address(ctx context.Context, id uint64) (*domain.RegistryEntry, error)
	AddressCount(ctx context.Context) (uint64, error)
}

// MatchDepositRequest holds validated input for deposit matching.
type MatchDepositRequest struct {
	Caller     common.Address
	HandleID   *big.Int
	Collection common.Address
	ItemID     *big.Int
}

// AssetVaultService defines the custody vault.
type AssetVaultService interface {
	MatchDeposit(ctx context.Context, req MatchDepositRequest) error
	Convert(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionResult, error)
	Tokens(ctx context.Context, handleID *big.Int) (domain.CustodyRecord, error)
}
