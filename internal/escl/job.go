package escl

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// nextDocumentSuffix is appended to the job's Location to address the
// scanned page; the caller fetches that second resource separately.
const nextDocumentSuffix = "/NextDocument"

// scanSettings mirrors the eSCL ScanSettings job body. The descriptor is
// assembled as data first and rendered in one place, keeping validation and
// wire concerns apart.
type scanSettings struct {
	XMLName   xml.Name `xml:"scan:ScanSettings"`
	XmlnsPWG  string   `xml:"xmlns:pwg,attr"`
	XmlnsScan string   `xml:"xmlns:scan,attr"`

	Version     string          `xml:"pwg:Version"`
	ScanRegions scanRegionsNode `xml:"pwg:ScanRegions"`
	InputSource string          `xml:"pwg:InputSource"`
	ColorMode   string          `xml:"scan:ColorMode"`
	XResolution int             `xml:"scan:XResolution"`
	YResolution int             `xml:"scan:YResolution"`
	Format      string          `xml:"pwg:DocumentFormat"`
	Intent      string          `xml:"scan:Intent"`
}

type scanRegionsNode struct {
	Region scanRegionNode `xml:"pwg:ScanRegion"`
}

type scanRegionNode struct {
	Height  int `xml:"pwg:Height"`
	Width   int `xml:"pwg:Width"`
	XOffset int `xml:"pwg:XOffset"`
	YOffset int `xml:"pwg:YOffset"`
}

// RenderScanSettings renders the wire-level job body for a resolved
// descriptor. This is the only place the job XML is produced.
func RenderScanSettings(d *JobDescriptor) ([]byte, error) {
	settings := scanSettings{
		XmlnsPWG:  nsPWG,
		XmlnsScan: nsScan,
		Version:   d.Version,
		ScanRegions: scanRegionsNode{
			Region: scanRegionNode{Height: d.Height, Width: d.Width},
		},
		InputSource: string(d.Source),
		ColorMode:   d.ColorMode,
		XResolution: d.XResolution,
		YResolution: d.YResolution,
		Format:      d.Format,
		Intent:      d.Intent,
	}
	body, err := xml.MarshalIndent(settings, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// CreateJob submits a resolved descriptor to the device and returns the
// document locator built from the 201 response's Location header. Any other
// status becomes a DeviceError carrying the device's reason phrase and code
// verbatim; nothing is retried.
func (c *Client) CreateJob(ctx context.Context, d *JobDescriptor) (string, error) {
	body, err := RenderScanSettings(d)
	if err != nil {
		return "", fmt.Errorf("render scan settings: %w", err)
	}

	jobURL := "http://" + c.device + scanJobsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, jobURL, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Op: "create job", URL: jobURL, Err: err}
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "create job", URL: jobURL, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return "", &DeviceError{Reason: reasonPhrase(resp), Code: resp.StatusCode}
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", &DeviceError{Reason: "201 response without Location header", Code: resp.StatusCode}
	}
	return location + nextDocumentSuffix, nil
}

// Document is a fetched scan result.
type Document struct {
	Data     []byte
	MIME     string
	Format   Format // empty when the MIME type is outside the gateway vocabulary
	Filename string
}

// FetchDocument retrieves the scanned page from a locator returned by
// CreateJob. The filename is derived from the Content-Location header with an
// extension matching the reported format.
func (c *Client) FetchDocument(ctx context.Context, locator string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &TransportError{Op: "fetch document", URL: locator, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "fetch document", URL: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &DeviceError{Reason: reasonPhrase(resp), Code: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "fetch document", URL: locator, Err: err}
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	format, _ := FormatForMIME(mimeType)

	return &Document{
		Data:     data,
		MIME:     mimeType,
		Format:   format,
		Filename: documentFilename(resp.Header.Get("Content-Location"), format),
	}, nil
}

// documentFilename derives a downloadable name from the device-reported
// Content-Location: its last path segment, plus the lowercased format name as
// extension.
func documentFilename(contentLocation string, format Format) string {
	base := "scan"
	if contentLocation != "" {
		loc := contentLocation
		if u, err := url.Parse(contentLocation); err == nil && u.Path != "" {
			loc = u.Path
		}
		if b := path.Base(loc); b != "" && b != "." && b != "/" {
			base = b
		}
	}
	ext := "bin"
	if format != "" {
		ext = strings.ToLower(string(format))
	}
	return base + "." + ext
}

// reasonPhrase extracts the reason phrase from a response status line.
func reasonPhrase(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
