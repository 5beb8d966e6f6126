package service

import (
	"math/big"
	"strconv"

	"custody-bridge/internal/core/domain"
	"custody-bridge/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "custody-bridge/internal/service"

// requireProcessor rejects every caller except the trusted processor.
func requireProcessor(processor, caller common.Address) error {
	if caller != processor {
		return apperror.ErrInvalidCaller()
	}
	return nil
}

func zero() *big.Int { return new(big.Int) }

func conversionAttributes(req domain.ConversionRequest) trace.SpanStartOption {
	attrs := []attribute.KeyValue{
		attribute.String("conversion.input_a", string(req.InputA.Kind)),
		attribute.String("conversion.output_a", string(req.OutputA.Kind)),
		attribute.String("conversion.aux_data", strconv.FormatUint(req.AuxData, 10)),
	}
	if req.InteractionID != nil {
		attrs = append(attrs, attribute.String("conversion.interaction_id", req.InteractionID.String()))
	}
	return trace.WithAttributes(attrs...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
