package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "123"),
		attribute.String("job_id", "456"),
		attribute.String("outcome", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "org_id" && attrs[1].Key != "org_id" {
		t.Fatalf("expected org_id to be retained")
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
}

func TestPhotoBucket(t *testing.T) {
	cases := map[int]string{0: "0", 1: "1-3", 3: "1-3", 4: "4-6", 6: "4-6", 10: "7+"}
	for n, want := range cases {
		if got := photoBucket(n); got != want {
			t.Fatalf("photoBucket(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordPresignIssued(context.Background(), "org", "r2")
	m.RecordAssessmentRequest(context.Background(), "org", "success")

	built, err := New(Config{ServiceName: "detailflow"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	built.RecordIntakeSubmitted(context.Background(), "org", 4)
}
