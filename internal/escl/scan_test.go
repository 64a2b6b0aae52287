package escl

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

// dropPlaten600 removes the 600 DPI discrete resolution from the Platen
// profile of the capabilities fixture.
func dropPlaten600(doc string) string {
	block := `              <scan:DiscreteResolution>
                <scan:XResolution>600</scan:XResolution>
                <scan:YResolution>600</scan:YResolution>
              </scan:DiscreteResolution>
`
	return strings.Replace(doc, block, "", 1)
}

func newTestOrchestrator(d *testDevice) *Orchestrator {
	return NewOrchestrator(Config{Device: d.address()})
}

func TestScan_HappyPath(t *testing.T) {
	d := newTestDevice(t)
	locator, err := newTestOrchestrator(d).Scan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if want := d.srv.URL + "/eSCL/ScanJobs/1001/NextDocument"; locator != want {
		t.Errorf("locator = %q, want %q", locator, want)
	}
}

func TestScan_BusyShortCircuitsBeforeValidation(t *testing.T) {
	d := newTestDevice(t)
	d.state = StatusProcessing

	// The request is invalid in every field; a busy device must still win.
	req := ScanRequest{Source: "Nowhere", ColorMode: "Sepia", Resolution: 1, Format: "BMP"}
	_, err := newTestOrchestrator(d).Scan(context.Background(), req)

	var derr *DeviceError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want DeviceError", err)
	}
	if derr.Code != StatusCodeBusy {
		t.Errorf("code = %d, want %d", derr.Code, StatusCodeBusy)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Error("busy device produced a ValidationError")
	}
	if d.jobHits != 0 {
		t.Errorf("job endpoint hit %d times, want 0", d.jobHits)
	}
}

func TestScan_ValidationErrorStopsSubmission(t *testing.T) {
	d := newTestDevice(t)
	req := validRequest()
	req.Intent = "BusinessCard"

	_, err := newTestOrchestrator(d).Scan(context.Background(), req)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if d.jobHits != 0 {
		t.Errorf("job endpoint hit %d times, want 0", d.jobHits)
	}
}

func TestScan_DeviceErrorPropagatesUnchanged(t *testing.T) {
	d := newTestDevice(t)
	d.jobCode = http.StatusConflict

	_, err := newTestOrchestrator(d).Scan(context.Background(), validRequest())
	var derr *DeviceError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want DeviceError", err)
	}
	if derr.Code != http.StatusConflict || derr.Reason != "Conflict" {
		t.Errorf("DeviceError = %d %q, want 409 Conflict", derr.Code, derr.Reason)
	}
}

func TestScanAndFetch(t *testing.T) {
	d := newTestDevice(t)
	doc, err := newTestOrchestrator(d).ScanAndFetch(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("ScanAndFetch() error: %v", err)
	}
	if doc.Format != FormatPDF {
		t.Errorf("format = %q, want PDF", doc.Format)
	}
	if len(doc.Data) == 0 {
		t.Error("empty document data")
	}
}

// Every call re-fetches capabilities; the orchestrator holds no snapshot.
func TestScan_NoCapabilityCaching(t *testing.T) {
	d := newTestDevice(t)
	o := newTestOrchestrator(d)

	if _, err := o.Scan(context.Background(), validRequest()); err != nil {
		t.Fatalf("first Scan() error: %v", err)
	}

	// Device config changed between calls: 600 DPI disappeared.
	d.capsXML = dropPlaten600(testCapsXML)
	req := validRequest() // still asks for 600
	_, err := o.Scan(context.Background(), req)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError after capability change", err)
	}
	if verr.Field != "resolution" {
		t.Errorf("field = %q, want resolution", verr.Field)
	}
}
