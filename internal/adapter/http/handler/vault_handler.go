package handler

import (
	"custody-bridge/internal/adapter/http/dto"
	"custody-bridge/internal/adapter/http/middleware"
	"custody-bridge/internal/core/domain"
	"custody-bridge/internal/core/ports"
	"custody-bridge/pkg/apperror"
	"custody-bridge/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// VaultHandler handles asset vault endpoints.
type VaultHandler struct {
	vaultSvc ports.AssetVaultService
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(vaultSvc ports.AssetVaultService) *VaultHandler {
	return &VaultHandler{vaultSvc: vaultSvc}
}

// Deposit handles POST /api/v1/vault/deposits.
func (h *VaultHandler) Deposit(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	handleID, _ := domain.ParseUint256(req.HandleID)
	itemID, _ := domain.ParseUint256(req.ItemID)
	collection := common.HexToAddress(req.Collection)

	err := h.vaultSvc.MatchDeposit(c.Request.Context(), ports.MatchDepositRequest{
		Caller:     caller,
		HandleID:   handleID,
		Collection: collection,
		ItemID:     itemID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositResponse{
		HandleID:   handleID.String(),
		Collection: collection.Hex(),
		ItemID:     itemID.String(),
	})
}

// Convert handles POST /api/v1/vault/convert.
func (h *VaultHandler) Convert(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAccessKey())
		return
	}

	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.vaultSvc.Convert(c.Request.Context(), req.ToDomain(caller))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewConvertResponse(result))
}

// Tokens handles GET /api/v1/vault/tokens/:handle_id.
func (h *VaultHandler) Tokens(c *gin.Context) {
	handleID, err := domain.ParseUint256(c.Param("handle_id"))
	if err != nil {
		response.Error(c, apperror.Validation("handle_id must be a uint256"))
		return
	}

	rec, err := h.vaultSvc.Tokens(c.Request.Context(), handleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTokensResponse(handleID, rec))
}
