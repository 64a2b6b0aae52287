package ipp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/OpenPrinting/goipp"
)

// PrinterInfo is the subset of Get-Printer-Attributes the gateway surfaces
// on its status endpoint.
type PrinterInfo struct {
	MakeAndModel  string
	State         string // idle, processing, stopped
	AcceptingJobs bool
}

var printerStates = map[int]string{
	3: "idle",
	4: "processing",
	5: "stopped",
}

// Attributes queries the printer for identity and state.
func (c *Client) Attributes(ctx context.Context) (*PrinterInfo, error) {
	msg := goipp.NewRequest(goipp.DefaultVersion, goipp.OpGetPrinterAttributes, 1)
	msg.Operation.Add(goipp.MakeAttribute("attributes-charset",
		goipp.TagCharset, goipp.String("utf-8")))
	msg.Operation.Add(goipp.MakeAttribute("attributes-natural-language",
		goipp.TagLanguage, goipp.String("en-US")))
	msg.Operation.Add(goipp.MakeAttribute("printer-uri",
		goipp.TagURI, goipp.String(c.uri)))

	requested := goipp.Attribute{Name: "requested-attributes"}
	for _, name := range []string{
		"printer-make-and-model", "printer-state", "printer-is-accepting-jobs",
	} {
		requested.Values.Add(goipp.TagKeyword, goipp.String(name))
	}
	msg.Operation.Add(requested)

	data, err := msg.EncodeBytes()
	if err != nil {
		return nil, fmt.Errorf("encode IPP request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uri, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("printer attributes request: %w", err)
	}
	req.Header.Set("Content-Type", goipp.ContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("printer attributes: %w", err)
	}
	defer resp.Body.Close()
	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("printer attributes response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("printer attributes: HTTP status: %s", resp.Status)
	}

	var respMsg goipp.Message
	if err := respMsg.DecodeBytes(respData); err != nil {
		return nil, fmt.Errorf("decode IPP response: %w", err)
	}

	info := &PrinterInfo{}
	for _, attr := range respMsg.Printer {
		if len(attr.Values) == 0 {
			continue
		}
		switch attr.Name {
		case "printer-make-and-model":
			if v, ok := attr.Values[0].V.(goipp.String); ok {
				info.MakeAndModel = string(v)
			}
		case "printer-state":
			if v, ok := attr.Values[0].V.(goipp.Integer); ok {
				info.State = printerStates[int(v)]
			}
		case "printer-is-accepting-jobs":
			if v, ok := attr.Values[0].V.(goipp.Boolean); ok {
				info.AcceptingJobs = bool(v)
			}
		}
	}
	return info, nil
}
