package dto

import (
	"custody-bridge/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("uint256", validateUint256)
	}
}

// validateUint256 accepts decimal or 0x-hex integers in [0, 2^256).
func validateUint256(fl validator.FieldLevel) bool {
	_, err := domain.ParseUint256(fl.Field().String())
	return err == nil
}
