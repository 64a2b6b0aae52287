// Package ipp submits print jobs to a CUPS/IPP printer.
package ipp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPrinting/goipp"
)

// Print option vocabularies, matching the upload form.
const (
	DuplexNone  = "none"
	DuplexLong  = "long"
	DuplexShort = "short"

	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// duplexSides maps form duplex values to IPP "sides" keywords. DuplexNone has
// no entry: single-sided jobs send no sides attribute and leave the printer
// default in effect.
var duplexSides = map[string]string{
	DuplexLong:  "two-sided-long-edge",
	DuplexShort: "two-sided-short-edge",
}

// IPP orientation-requested enum values.
var orientationEnum = map[string]int{
	OrientationPortrait:  3,
	OrientationLandscape: 4,
}

// pageRangeRE accepts "1-5,8,11-13" style range lists.
var pageRangeRE = regexp.MustCompile(`^([0-9]+(-[0-9]+)?)(,([0-9]+(-[0-9]+)?))*$`)

// OptionError reports a print option outside its vocabulary.
type OptionError struct {
	Option  string
	Value   string
	Allowed []string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("%s (%s) is not in (%s)", e.Option, e.Value, strings.Join(e.Allowed, ", "))
}

// Config holds the printer endpoint.
type Config struct {
	PrinterURI string        // e.g. http://localhost:631/printers/office
	Timeout    time.Duration // 0 means 60s; large documents take a while
}

// Client submits IPP requests to one printer.
type Client struct {
	http *http.Client
	uri  string
}

// NewClient creates a Client for the configured printer.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		uri:  cfg.PrinterURI,
	}
}

// PrinterURI returns the configured printer endpoint.
func (c *Client) PrinterURI() string { return c.uri }

// PrintRequest is one PDF print job with its options.
type PrintRequest struct {
	Filename    string
	Document    []byte
	Duplex      string // none | long | short
	PageRange   string // "1-5,8,11-13", empty = all pages
	Orientation string // portrait | landscape
	Copies      int    // 0 means 1
}

// Validate checks the option vocabularies without touching the network.
func (r *PrintRequest) Validate() error {
	if !strings.EqualFold(strings.TrimPrefix(filepathExt(r.Filename), "."), "pdf") {
		return &OptionError{Option: "file", Value: r.Filename, Allowed: []string{"*.pdf"}}
	}
	if r.Duplex != DuplexNone {
		if _, ok := duplexSides[r.Duplex]; !ok {
			return &OptionError{
				Option:  "duplex",
				Value:   r.Duplex,
				Allowed: []string{DuplexNone, DuplexLong, DuplexShort},
			}
		}
	}
	if r.PageRange != "" && !pageRangeRE.MatchString(r.PageRange) {
		return &OptionError{
			Option:  "range",
			Value:   r.PageRange,
			Allowed: []string{"1-5,8,11-13 style"},
		}
	}
	if _, ok := orientationEnum[r.Orientation]; !ok {
		return &OptionError{
			Option:  "orientation",
			Value:   r.Orientation,
			Allowed: []string{OrientationPortrait, OrientationLandscape},
		}
	}
	if r.Copies < 0 {
		return &OptionError{Option: "copies", Value: strconv.Itoa(r.Copies), Allowed: []string{">= 1"}}
	}
	return nil
}

// Print validates the request, builds an IPP Print-Job message and posts it
// with the PDF as document data. It returns the job id assigned by the
// printer.
func (c *Client) Print(ctx context.Context, r *PrintRequest) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	msg := c.buildPrintJob(r)
	header, err := msg.EncodeBytes()
	if err != nil {
		return 0, fmt.Errorf("encode IPP request: %w", err)
	}

	body := make([]byte, 0, len(header)+len(r.Document))
	body = append(body, header...)
	body = append(body, r.Document...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uri, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("print job request: %w", err)
	}
	req.Header.Set("Content-Type", goipp.ContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("print job: %w", err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("print job response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("print job: HTTP status: %s", resp.Status)
	}

	var respMsg goipp.Message
	if err := respMsg.DecodeBytes(respData); err != nil {
		return 0, fmt.Errorf("decode IPP response: %w", err)
	}
	if status := goipp.Status(respMsg.Code); int(respMsg.Code) >= 0x0100 {
		return 0, fmt.Errorf("printer rejected job: %s", status)
	}

	jobID := jobIDAttr(&respMsg)
	slog.Info("print job accepted",
		"printer", c.uri, "file", r.Filename, "jobID", jobID, "copies", max(r.Copies, 1))
	return jobID, nil
}

// buildPrintJob assembles the Print-Job operation and job attribute groups.
func (c *Client) buildPrintJob(r *PrintRequest) *goipp.Message {
	msg := goipp.NewRequest(goipp.DefaultVersion, goipp.OpPrintJob, 1)
	msg.Operation.Add(goipp.MakeAttribute("attributes-charset",
		goipp.TagCharset, goipp.String("utf-8")))
	msg.Operation.Add(goipp.MakeAttribute("attributes-natural-language",
		goipp.TagLanguage, goipp.String("en-US")))
	msg.Operation.Add(goipp.MakeAttribute("printer-uri",
		goipp.TagURI, goipp.String(c.uri)))
	msg.Operation.Add(goipp.MakeAttribute("requesting-user-name",
		goipp.TagName, goipp.String("printscan")))
	msg.Operation.Add(goipp.MakeAttribute("job-name",
		goipp.TagName, goipp.String(r.Filename)))
	msg.Operation.Add(goipp.MakeAttribute("document-format",
		goipp.TagMimeType, goipp.String("application/pdf")))

	if sides, ok := duplexSides[r.Duplex]; ok {
		msg.Job.Add(goipp.MakeAttribute("sides", goipp.TagKeyword, goipp.String(sides)))
	}
	if r.PageRange != "" {
		attr := goipp.Attribute{Name: "page-ranges"}
		for _, rg := range parsePageRanges(r.PageRange) {
			attr.Values.Add(goipp.TagRange, rg)
		}
		msg.Job.Add(attr)
	}
	msg.Job.Add(goipp.MakeAttribute("orientation-requested",
		goipp.TagEnum, goipp.Integer(orientationEnum[r.Orientation])))
	if r.Copies > 1 {
		msg.Job.Add(goipp.MakeAttribute("copies",
			goipp.TagInteger, goipp.Integer(r.Copies)))
	}

	return msg
}

// parsePageRanges converts a validated range list into IPP range values.
// A bare page number becomes a degenerate range.
func parsePageRanges(spec string) []goipp.Range {
	var out []goipp.Range
	for _, part := range strings.Split(spec, ",") {
		lo, hi, found := strings.Cut(part, "-")
		lower, _ := strconv.Atoi(lo)
		upper := lower
		if found {
			upper, _ = strconv.Atoi(hi)
		}
		out = append(out, goipp.Range{Lower: lower, Upper: upper})
	}
	return out
}

func jobIDAttr(msg *goipp.Message) int {
	for _, attr := range msg.Job {
		if attr.Name == "job-id" && len(attr.Values) > 0 {
			if v, ok := attr.Values[0].V.(goipp.Integer); ok {
				return int(v)
			}
		}
	}
	return 0
}

// filepathExt is path/filepath.Ext without pulling in OS path semantics for
// an upload-supplied name.
func filepathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
