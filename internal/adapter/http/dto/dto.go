package dto

import (
	"math/big"

	"custody-bridge/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
)

// AssetRequest is one leg of a conversion. An omitted kind means NONE.
type AssetRequest struct {
	ID    string `json:"id" binding:"omitempty,uint256"`
	Token string `json:"token,omitempty" binding:"omitempty,eth_addr"`
	Kind  string `json:"kind" binding:"omitempty,oneof=NONE NATIVE FUNGIBLE HANDLE"`
}

// ConvertRequest is the request body for both conversion entry points.
// uint256 values are decimal (or 0x-hex) strings.
type ConvertRequest struct {
	InputAssetA      AssetRequest `json:"input_asset_a"`
	InputAssetB      AssetRequest `json:"input_asset_b"`
	OutputAssetA     AssetRequest `json:"output_asset_a"`
	OutputAssetB     AssetRequest `json:"output_asset_b"`
	TotalInputValue  string       `json:"total_input_value" binding:"required,uint256"`
	InteractionNonce string       `json:"interaction_nonce" binding:"omitempty,uint256"`
	AuxData          uint64       `json:"aux_data"`
	Beneficiary      string       `json:"beneficiary" binding:"omitempty,eth_addr"`
}

// DepositRequest is the request body for matching a deposit to a handle.
type DepositRequest struct {
	HandleID   string `json:"handle_id" binding:"required,uint256"`
	Collection string `json:"collection" binding:"required,eth_addr"`
	ItemID     string `json:"item_id" binding:"required,uint256"`
}

// RegisterAddressRequest is the request body for direct withdraw-address registration.
type RegisterAddressRequest struct {
	Address string `json:"address" binding:"required,eth_addr"`
}

// ConvertResponse is the response body for an accepted conversion.
type ConvertResponse struct {
	OutputValueA string `json:"output_value_a"`
	OutputValueB string `json:"output_value_b"`
	IsAsync      bool   `json:"is_async"`
}

// RegisterAddressResponse returns the registry id assigned to an address.
type RegisterAddressResponse struct {
	ID string `json:"id"`
}

// AddressResponse is one registry entry.
type AddressResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// AddressCountResponse is the current registry counter.
type AddressCountResponse struct {
	Count string `json:"count"`
}

// DepositResponse echoes the custody record created by a deposit.
type DepositResponse struct {
	HandleID   string `json:"handle_id"`
	Collection string `json:"collection"`
	ItemID     string `json:"item_id"`
}

// TokensResponse mirrors the vault's public custody mapping for one handle.
// An empty record reports held=false with the zero address and item id 0.
type TokensResponse struct {
	HandleID   string `json:"handle_id"`
	Held       bool   `json:"held"`
	Collection string `json:"collection"`
	ItemID     string `json:"item_id"`
}

// EventResponse is one persisted bridge event.
type EventResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Topic     string            `json:"topic"`
	Fields    map[string]string `json:"fields"`
	CreatedAt string            `json:"created_at"`
}

// ToDomain converts the leg. Fields are assumed to have passed binding validation.
func (a AssetRequest) ToDomain() domain.AssetDescriptor {
	kind := domain.AssetKind(a.Kind)
	if kind == "" {
		kind = domain.AssetKindNone
	}
	desc := domain.AssetDescriptor{ID: parseOrZero(a.ID), Kind: kind}
	if a.Token != "" {
		desc.Token = common.HexToAddress(a.Token)
	}
	return desc
}

// ToDomain builds the conversion request on behalf of caller.
func (r ConvertRequest) ToDomain(caller common.Address) domain.ConversionRequest {
	req := domain.ConversionRequest{
		Caller:          caller,
		InputA:          r.InputAssetA.ToDomain(),
		InputB:          r.InputAssetB.ToDomain(),
		OutputA:         r.OutputAssetA.ToDomain(),
		OutputB:         r.OutputAssetB.ToDomain(),
		TotalInputValue: parseOrZero(r.TotalInputValue),
		InteractionID:   parseOrZero(r.InteractionNonce),
		AuxData:         r.AuxData,
	}
	if r.Beneficiary != "" {
		req.Beneficiary = common.HexToAddress(r.Beneficiary)
	}
	return req
}

// NewConvertResponse formats a conversion result.
func NewConvertResponse(res *domain.ConversionResult) ConvertResponse {
	return ConvertResponse{
		OutputValueA: bigString(res.OutputValueA),
		OutputValueB: bigString(res.OutputValueB),
		IsAsync:      res.IsAsync,
	}
}

// NewTokensResponse formats a custody record.
func NewTokensResponse(handleID *big.Int, rec domain.CustodyRecord) TokensResponse {
	resp := TokensResponse{
		HandleID:   handleID.String(),
		Collection: common.Address{}.Hex(),
		ItemID:     "0",
	}
	if held, ok := rec.(domain.HeldItem); ok {
		resp.Held = true
		resp.Collection = held.Collection.Hex()
		resp.ItemID = bigString(held.ItemID)
	}
	return resp
}

// NewEventResponse formats a bridge event.
func NewEventResponse(ev domain.BridgeEvent) EventResponse {
	return EventResponse{
		ID:        ev.ID.String(),
		Name:      string(ev.Name),
		Topic:     ev.Topic,
		Fields:    ev.Fields,
		CreatedAt: ev.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func parseOrZero(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	v, err := domain.ParseUint256(s)
	if err != nil {
		return new(big.Int)
	}
	return v
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
