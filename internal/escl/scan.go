package escl

import (
	"context"
	"fmt"
	"log/slog"
)

// Orchestrator drives a complete scan negotiation against one device:
// fetch capabilities, check the device is idle, validate the request, submit
// the job. Every call re-fetches capabilities and every failure is terminal;
// retry policy, like mutual exclusion per device, belongs to the caller.
type Orchestrator struct {
	client *Client
}

// NewOrchestrator creates an Orchestrator from an explicit configuration.
func NewOrchestrator(cfg Config) *Orchestrator {
	return &Orchestrator{client: NewClient(cfg)}
}

// Client exposes the underlying protocol client, e.g. for fetching the
// resulting document after Scan returns a locator.
func (o *Orchestrator) Client() *Client { return o.client }

// Scan runs the linear negotiation and returns the document locator the
// caller must fetch. A non-Idle device short-circuits before any
// validation.
func (o *Orchestrator) Scan(ctx context.Context, req ScanRequest) (string, error) {
	status, caps, err := o.client.Capabilities(ctx)
	if err != nil {
		return "", err
	}
	if status != StatusIdle {
		return "", &DeviceError{
			Reason: fmt.Sprintf("scanner status is not Idle: %s", status),
			Code:   StatusCodeBusy,
		}
	}

	if req.Resolution == 0 {
		// The fallback masks caller mistakes often enough to be worth a trace.
		slog.Warn("scan request omitted resolution, defaulting",
			"device", o.client.Device(), "default", refDPI)
	}
	descriptor, err := Resolve(caps, req)
	if err != nil {
		return "", err
	}

	slog.Info("submitting scan job",
		"device", o.client.Device(),
		"source", descriptor.Source,
		"resolution", descriptor.XResolution,
		"height", descriptor.Height,
		"width", descriptor.Width,
		"format", descriptor.Format,
	)
	return o.client.CreateJob(ctx, descriptor)
}

// ScanAndFetch is Scan plus the follow-up document retrieval.
func (o *Orchestrator) ScanAndFetch(ctx context.Context, req ScanRequest) (*Document, error) {
	locator, err := o.Scan(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.client.FetchDocument(ctx, locator)
}
