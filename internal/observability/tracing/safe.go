package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// Attribute keys that may carry customer data or secrets never reach a span.
var blockedAttributeKeys = map[attribute.Key]struct{}{
	"authorization":  {},
	"email":          {},
	"phone":          {},
	"customer_email": {},
	"customer_phone": {},
	"api_key":        {},
	"presigned_url":  {},
}

// SafeAttributes drops blocked keys and empty string values.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		if attr.Value.Type() == attribute.STRING && strings.TrimSpace(attr.Value.AsString()) == "" {
			continue
		}
		out = append(out, attr)
	}
	return out
}

const maxErrorMessage = 256

// SafeError returns an error whose message is safe to record on a span.
// Signed URLs carry credentials in the query string, so anything after '?' is cut.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if idx := strings.Index(msg, "?"); idx >= 0 {
		msg = msg[:idx] + "?<redacted>"
	}
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	return errors.New(msg)
}

// ExtractContext reads W3C trace headers from the carrier into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
