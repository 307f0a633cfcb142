package telemetry

import (
	"context"
	"testing"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	opts := Options{ServiceName: "inboxdraft"}
	if opts.Enabled() || opts.LogsEnabled() {
		t.Fatalf("options without endpoints should be disabled")
	}
	shutdown, err := Setup(context.Background(), opts)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}

func TestOptionsEnabled(t *testing.T) {
	if !(Options{MetricsEndpoint: "localhost:4317"}).Enabled() {
		t.Fatalf("metrics endpoint should enable telemetry")
	}
	o := Options{HTTPEndpoint: "localhost:4318"}
	if !o.Enabled() || !o.LogsEnabled() {
		t.Fatalf("http endpoint should enable traces and logs")
	}
}
