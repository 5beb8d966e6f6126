package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"custody-bridge/internal/core/domain"
	"custody-bridge/internal/core/ports/mocks"
	"custody-bridge/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	processorAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	vaultAddr     = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	strangerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type registryTestDeps struct {
	svc        *RegistryServiceImpl
	repo       *mocks.MockRegistryRepository
	eventRepo  *mocks.MockEventRepository
	events     *mocks.MockEventService
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupRegistryService(t *testing.T) *registryTestDeps {
	ctrl := gomock.NewController(t)
	d := &registryTestDeps{
		repo:       mocks.NewMockRegistryRepository(ctrl),
		eventRepo:  mocks.NewMockEventRepository(ctrl),
		events:     mocks.NewMockEventService(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewRegistryService(d.repo, d.eventRepo, d.events, d.transactor, processorAddr, nil, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing and records how it ended.
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func conversion(caller common.Address, in, out domain.AssetKind, amount *big.Int) domain.ConversionRequest {
	return domain.ConversionRequest{
		Caller:          caller,
		InputA:          domain.AssetDescriptor{ID: big.NewInt(1), Kind: in},
		InputB:          domain.NoAsset(),
		OutputA:         domain.AssetDescriptor{ID: big.NewInt(1), Kind: out},
		OutputB:         domain.NoAsset(),
		TotalInputValue: amount,
		InteractionID:   big.NewInt(42),
	}
}

// ==================== Convert: validation ====================

func TestRegistryService_Convert_Validation(t *testing.T) {
	tests := []struct {
		name   string
		caller common.Address
		in     domain.AssetKind
		out    domain.AssetKind
		amount *big.Int
		code   string
	}{
		{"non-processor caller", strangerAddr, domain.AssetKindNative, domain.AssetKindHandle, big.NewInt(1), "SEC_005"},
		{"caller checked before legs", strangerAddr, domain.AssetKindNone, domain.AssetKindNone, big.NewInt(1), "SEC_005"},
		{"input none", processorAddr, domain.AssetKindNone, domain.AssetKindHandle, big.NewInt(1), "CNV_001"},
		{"input fungible", processorAddr, domain.AssetKindFungible, domain.AssetKindHandle, big.NewInt(1), "CNV_001"},
		{"output native", processorAddr, domain.AssetKindNative, domain.AssetKindNative, big.NewInt(1), "CNV_002"},
		{"output fungible", processorAddr, domain.AssetKindHandle, domain.AssetKindFungible, big.NewInt(1), "CNV_002"},
		{"output none", processorAddr, domain.AssetKindHandle, domain.AssetKindNone, big.NewInt(1), "CNV_002"},
		{"phase 1 amount 2", processorAddr, domain.AssetKindNative, domain.AssetKindHandle, big.NewInt(2), "CNV_003"},
		{"phase 1 amount 0", processorAddr, domain.AssetKindNative, domain.AssetKindHandle, big.NewInt(0), "CNV_003"},
		{"phase 1 nil amount", processorAddr, domain.AssetKindNative, domain.AssetKindHandle, nil, "CNV_003"},
		{"phase 2 amount too wide", processorAddr, domain.AssetKindHandle, domain.AssetKindHandle, new(big.Int).Lsh(big.NewInt(1), 160), "CNV_003"},
		{"unknown input kind", processorAddr, "ERC1155", domain.AssetKindHandle, big.NewInt(1), "CNV_004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupRegistryService(t)
			defer d.ctrl.Finish()

			res, err := d.svc.Convert(context.Background(), conversion(tt.caller, tt.in, tt.out, tt.amount))
			assert.Nil(t, res)
			assertAppError(t, err, tt.code)
		})
	}
}

// ==================== Convert: phase 1 ====================

func TestRegistryService_Convert_PhaseOne(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	res, err := d.svc.Convert(context.Background(), conversion(processorAddr, domain.AssetKindNative, domain.AssetKindHandle, big.NewInt(1)))
	require.NoError(t, err)
	assert.Equal(t, 0, res.OutputValueA.Cmp(domain.MaxUint160))
	assert.Equal(t, 0, res.OutputValueB.Sign())
	assert.False(t, res.IsAsync)

	// The returned value is a copy.
	res.OutputValueA.SetInt64(0)
	assert.Equal(t, 160, domain.MaxUint160.BitLen())
}

// ==================== Convert: phase 2 ====================

func TestRegistryService_Convert_PhaseTwo_RegistersEncodedAddress(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	addr := common.HexToAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01")
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.repo.EXPECT().NextID(gomock.Any(), tx).Return(uint64(5), nil)
	d.repo.EXPECT().Insert(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.RegistryEntry) error {
			assert.Equal(t, uint64(5), entry.ID)
			assert.Equal(t, addr, entry.Address)
			assert.Equal(t, domain.RegistrationSourceConversion, entry.Source)
			return nil
		},
	)
	d.eventRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, ev *domain.BridgeEvent) error {
			assert.Equal(t, domain.EventAddressRegistered, ev.Name)
			assert.Equal(t, "5", ev.Fields["id"])
			assert.Equal(t, addr.Hex(), ev.Fields["address"])
			return nil
		},
	)
	d.events.EXPECT().Publish(gomock.Any(), gomock.Any())

	res, err := d.svc.Convert(context.Background(), conversion(processorAddr, domain.AssetKindHandle, domain.AssetKindHandle, domain.AddressToAmount(addr)))
	require.NoError(t, err)
	assert.Equal(t, 0, res.OutputValueA.Sign())
	assert.Equal(t, 0, res.OutputValueB.Sign())
	assert.False(t, res.IsAsync)
	assert.True(t, tx.committed)
}

func TestRegistryService_Convert_PhaseTwo_InsertFailureRollsBack(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.repo.EXPECT().NextID(gomock.Any(), tx).Return(uint64(1), nil)
	d.repo.EXPECT().Insert(gomock.Any(), tx, gomock.Any()).Return(errors.New("disk full"))

	_, err := d.svc.Convert(context.Background(), conversion(processorAddr, domain.AssetKindHandle, domain.AssetKindHandle, big.NewInt(0xabcd)))
	assertAppError(t, err, "SYS_001")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestRegistryService_Convert_BeginFailure(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	d.transactor.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("pool closed"))

	_, err := d.svc.Convert(context.Background(), conversion(processorAddr, domain.AssetKindHandle, domain.AssetKindHandle, big.NewInt(1)))
	assertAppError(t, err, "SYS_001")
}

// ==================== RegisterWithdrawAddress ====================

func TestRegistryService_RegisterWithdrawAddress(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.repo.EXPECT().NextID(ctx, tx).Return(uint64(9), nil)
	d.repo.EXPECT().Insert(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.RegistryEntry) error {
			assert.Equal(t, domain.RegistrationSourceDirect, entry.Source)
			assert.Equal(t, to, entry.Address)
			return nil
		},
	)
	d.eventRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(ctx, gomock.Any())

	id, err := d.svc.RegisterWithdrawAddress(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), id)
	assert.True(t, tx.committed)
}

func TestRegistryService_RegisterWithdrawAddress_NextIDFailure(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.repo.EXPECT().NextID(ctx, tx).Return(uint64(0), errors.New("lock timeout"))

	_, err := d.svc.RegisterWithdrawAddress(ctx, strangerAddr)
	assertAppError(t, err, "SYS_001")
	assert.True(t, tx.rolledBack)
}

// ==================== Reads ====================

func TestRegistryService_Address(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	entry := &domain.RegistryEntry{ID: 3, Address: strangerAddr}
	d.repo.EXPECT().Get(ctx, uint64(3)).Return(entry, nil)
	d.repo.EXPECT().Get(ctx, uint64(4)).Return(nil, nil)

	got, err := d.svc.Address(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, strangerAddr, got.Address)

	_, err = d.svc.Address(ctx, 4)
	assertAppError(t, err, "REQ_002")
}

func TestRegistryService_AddressCount(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.repo.EXPECT().Count(ctx).Return(uint64(12), nil)

	n, err := d.svc.AddressCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), n)
}

func TestRegistryService_Resolve(t *testing.T) {
	d := setupRegistryService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.repo.EXPECT().Get(ctx, uint64(1)).Return(&domain.RegistryEntry{ID: 1, Address: strangerAddr}, nil)
	d.repo.EXPECT().Get(ctx, uint64(2)).Return(nil, nil)
	d.repo.EXPECT().Get(ctx, uint64(3)).Return(nil, errors.New("conn reset"))

	addr, ok, err := d.svc.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, strangerAddr, addr)

	_, ok, err = d.svc.Resolve(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// Zero never resolves and never reaches the repository.
	_, ok, err = d.svc.Resolve(ctx, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = d.svc.Resolve(ctx, 3)
	assert.Error(t, err)
}
