package escl

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func testDescriptor() *JobDescriptor {
	return &JobDescriptor{
		Version:     "2.63",
		Height:      3507,
		Width:       2550,
		Source:      SourcePlaten,
		ColorMode:   "RGB24",
		XResolution: 300,
		YResolution: 300,
		Format:      "application/pdf",
		Intent:      "Document",
	}
}

func TestRenderScanSettings(t *testing.T) {
	body, err := RenderScanSettings(testDescriptor())
	if err != nil {
		t.Fatalf("RenderScanSettings() error: %v", err)
	}
	s := string(body)

	if !strings.HasPrefix(s, "<?xml") {
		t.Error("missing XML declaration")
	}
	for _, want := range []string{
		`xmlns:pwg="` + nsPWG + `"`,
		`xmlns:scan="` + nsScan + `"`,
		"<pwg:Version>2.63</pwg:Version>",
		"<pwg:Height>3507</pwg:Height>",
		"<pwg:Width>2550</pwg:Width>",
		"<pwg:XOffset>0</pwg:XOffset>",
		"<pwg:YOffset>0</pwg:YOffset>",
		"<pwg:InputSource>Platen</pwg:InputSource>",
		"<scan:ColorMode>RGB24</scan:ColorMode>",
		"<scan:XResolution>300</scan:XResolution>",
		"<scan:YResolution>300</scan:YResolution>",
		"<pwg:DocumentFormat>application/pdf</pwg:DocumentFormat>",
		"<scan:Intent>Document</scan:Intent>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("rendered settings missing %q:\n%s", want, s)
		}
	}
}

func TestCreateJob_Created(t *testing.T) {
	d := newTestDevice(t)
	locator, err := d.client(false).CreateJob(context.Background(), testDescriptor())
	if err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}
	want := d.srv.URL + "/eSCL/ScanJobs/1001/NextDocument"
	if locator != want {
		t.Errorf("locator = %q, want %q", locator, want)
	}
	if d.jobHits != 1 {
		t.Errorf("job endpoint hit %d times, want 1", d.jobHits)
	}
}

func TestCreateJob_DeviceRejects(t *testing.T) {
	d := newTestDevice(t)
	d.jobCode = http.StatusConflict

	_, err := d.client(false).CreateJob(context.Background(), testDescriptor())
	var derr *DeviceError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want DeviceError", err)
	}
	if derr.Code != http.StatusConflict {
		t.Errorf("code = %d, want 409", derr.Code)
	}
	// Reason phrase is passed through from the status line.
	if derr.Reason != "Conflict" {
		t.Errorf("reason = %q, want %q", derr.Reason, "Conflict")
	}
}

func TestFetchDocument(t *testing.T) {
	d := newTestDevice(t)
	d.docMIME = "image/jpeg"
	d.docLoc = "/eSCL/ScanJobs/1001/Documents/img-20260828"
	d.document = []byte{0xFF, 0xD8, 0xFF, 0xE0}

	doc, err := d.client(false).FetchDocument(context.Background(),
		d.srv.URL+"/eSCL/ScanJobs/1001/NextDocument")
	if err != nil {
		t.Fatalf("FetchDocument() error: %v", err)
	}
	if doc.MIME != "image/jpeg" || doc.Format != FormatJPEG {
		t.Errorf("mime/format = %q/%q", doc.MIME, doc.Format)
	}
	if doc.Filename != "img-20260828.jpeg" {
		t.Errorf("filename = %q, want img-20260828.jpeg", doc.Filename)
	}
	if len(doc.Data) != 4 {
		t.Errorf("data length = %d, want 4", len(doc.Data))
	}
}

func TestDocumentFilename(t *testing.T) {
	tests := []struct {
		name     string
		location string
		format   Format
		want     string
	}{
		{"relative_path", "/eSCL/ScanJobs/1/Documents/1", FormatPDF, "1.pdf"},
		{"absolute_url", "http://10.0.0.2/eSCL/ScanJobs/1/Documents/page", FormatJPEG, "page.jpeg"},
		{"empty_location", "", FormatPDF, "scan.pdf"},
		{"unknown_format", "/doc/7", "", "7.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := documentFilename(tt.location, tt.format)
			if got != tt.want {
				t.Errorf("documentFilename(%q, %q) = %q, want %q",
					tt.location, tt.format, got, tt.want)
			}
		})
	}
}
