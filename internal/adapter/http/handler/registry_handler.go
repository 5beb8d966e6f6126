package handler

import (
	"strconv"

	"custody-bridge/internal/adapter/http/dto"
	"custody-bridge/internal/adapter/http/middleware"
	"custody-bridge/internal/core/ports"
	"custody-bridge/pkg/apperror"
	"custody-bridge/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// RegistryHandler handles address registry endpoints.
type RegistryHandler struct {
	registrySvc ports.AddressRegistryService
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(registrySvc ports.AddressRegistryService) *RegistryHandler {
	return &RegistryHandler{registrySvc: registrySvc}
}

// Convert handles POST /api/v1/registry/convert.
func (h *RegistryHandler) Convert(c *gin.Context) {
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

	result, err := h.registrySvc.Convert(c.Request.Context(), req.ToDomain(caller))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewConvertResponse(result))
}

// RegisterAddress handles POST /api/v1/registry/addresses.
func (h *RegistryHandler) RegisterAddress(c *gin.Context) {
	var req dto.RegisterAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	id, err := h.registrySvc.RegisterWithdrawAddress(c.Request.Context(), common.HexToAddress(req.Address))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RegisterAddressResponse{ID: strconv.FormatUint(id, 10)})
}

// GetAddress handles GET /api/v1/registry/addresses/:id.
func (h *RegistryHandler) GetAddress(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, apperror.Validation("id must be an unsigned 64-bit integer"))
		return
	}

	entry, err := h.registrySvc.Address(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AddressResponse{
		ID:      strconv.FormatUint(entry.ID, 10),
		Address: entry.Address.Hex(),
	})
}

// Count handles GET /api/v1/registry/count.
func (h *RegistryHandler) Count(c *gin.Context) {
	n, err := h.registrySvc.AddressCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AddressCountResponse{Count: strconv.FormatUint(n, 10)})
}
