package otelhelper

import (
	"github.com/dukex/restflow/pkg/faults"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorKindKey tags failed spans with the fault classification of the error.
const ErrorKindKey = "restflow.error.kind"

func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	kind := attribute.String(ErrorKindKey, faults.KindOf(err).String())

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(kind)
	span.AddEvent("request_failed", trace.WithAttributes(
		append([]attribute.KeyValue{kind}, attrs...)...,
	))
}
