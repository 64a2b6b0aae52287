package escl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// The two namespaces every eSCL document uses.
const (
	nsPWG  = "http://www.pwg.org/schemas/2010/12/sm"
	nsScan = "http://schemas.hp.com/imaging/escl/2011/05/03"
)

// Well-known device paths.
const (
	statusPath       = "/eSCL/ScannerStatus"
	capabilitiesPath = "/eSCL/ScannerCapabilities"
	scanJobsPath     = "/eSCL/ScanJobs"
)

// refDPI is the reference resolution the device reports pixel ranges in.
const refDPI = 300

// ISO A4 at the reference resolution, used by the optional global clamp.
const (
	a4MaxWidth  = 2480
	a4MaxHeight = 3508
)

// Config carries everything a Client needs. It is passed in explicitly; the
// package reads no ambient state.
type Config struct {
	Device  string        // scanner host[:port]
	Timeout time.Duration // per-request HTTP timeout, 0 means 30s
	ClampA4 bool          // cap reported maxima to A4 before range scaling
}

// Client talks eSCL to a single device over plain HTTP. It holds no state
// between calls beyond the connection pool.
type Client struct {
	http    *http.Client
	device  string
	clampA4 bool
}

// NewClient creates a Client for the given device.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		device:  cfg.Device,
		clampA4: cfg.ClampA4,
	}
}

// Device returns the device address the client targets.
func (c *Client) Device() string { return c.device }

// Status fetches the scanner state document.
func (c *Client) Status(ctx context.Context) (DeviceStatus, error) {
	doc, err := c.getXML(ctx, "status", statusPath)
	if err != nil {
		return "", err
	}
	var state string
	err = doc.apply([]schemaField{
		{path: "/scan:ScannerStatus/pwg:State", required: true, set: setString(&state)},
	})
	if err != nil {
		return "", err
	}
	return DeviceStatus(state), nil
}

// Capabilities fetches the status and capabilities documents and decodes them
// into a normalized per-source capability model. Nothing is cached: device
// configuration (installed paper, covers) may change between calls.
func (c *Client) Capabilities(ctx context.Context) (DeviceStatus, *DeviceCapabilities, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return "", nil, err
	}

	doc, err := c.getXML(ctx, "capabilities", capabilitiesPath)
	if err != nil {
		return "", nil, err
	}

	const root = "/scan:ScannerCapabilities"
	caps := &DeviceCapabilities{Sources: make(map[InputSource]*CapabilityProfile)}
	err = doc.apply([]schemaField{
		{path: root + "/pwg:Version", required: true, set: setString(&caps.Version)},
		{path: root + "/pwg:MakeAndModel", required: true, set: setString(&caps.MakeAndModel)},
		{path: root + "/pwg:SerialNumber", required: true, set: setString(&caps.SerialNumber)},
	})
	if err != nil {
		return "", nil, err
	}

	// Platen plus the simplex ADF profile; duplex is out of scope.
	subtrees := []struct {
		source InputSource
		prefix string
	}{
		{SourcePlaten, root + "/scan:Platen/scan:PlatenInputCaps"},
		{SourceFeeder, root + "/scan:Adf/scan:AdfSimplexInputCaps"},
	}
	for _, st := range subtrees {
		if !doc.seen[st.prefix] {
			continue
		}
		profile, err := c.decodeProfile(doc, st.prefix)
		if err != nil {
			return "", nil, err
		}
		caps.Sources[st.source] = profile
	}
	if len(caps.Sources) == 0 {
		return "", nil, &ParseError{Doc: doc.name, Reason: "no input source capabilities advertised"}
	}

	return status, caps, nil
}

// decodeProfile extracts one input source's capabilities and derives the
// per-resolution pixel ranges so validation never repeats the scaling
// arithmetic.
func (c *Client) decodeProfile(doc *xmlDoc, prefix string) (*CapabilityProfile, error) {
	const (
		settingProfile = "/scan:SettingProfiles/scan:SettingProfile"
		discreteRes    = settingProfile + "/scan:SupportedResolutions/scan:DiscreteResolutions/scan:DiscreteResolution"
	)

	var (
		minWidth, maxWidth   int
		minHeight, maxHeight int
		optX, optY           int
		xres, yres           []int
		mimes, natives       []string
		intents              []string
	)
	err := doc.apply([]schemaField{
		{path: prefix + "/scan:MinWidth", required: true, set: setInt(&minWidth)},
		{path: prefix + "/scan:MaxWidth", required: true, set: setInt(&maxWidth)},
		{path: prefix + "/scan:MinHeight", required: true, set: setInt(&minHeight)},
		{path: prefix + "/scan:MaxHeight", required: true, set: setInt(&maxHeight)},
		{path: prefix + "/scan:MaxOpticalXResolution", required: true, set: setInt(&optX)},
		{path: prefix + "/scan:MaxOpticalYResolution", required: true, set: setInt(&optY)},
		{path: prefix + discreteRes + "/scan:XResolution", required: true, set: setInts(&xres)},
		{path: prefix + discreteRes + "/scan:YResolution", required: true, set: setInts(&yres)},
		{path: prefix + settingProfile + "/scan:DocumentFormats/pwg:DocumentFormat", set: setStrings(&mimes)},
		{path: prefix + settingProfile + "/scan:ColorModes/scan:ColorMode", set: setStrings(&natives)},
		{path: prefix + "/scan:SupportedIntents/scan:Intent", set: setStrings(&intents)},
	})
	if err != nil {
		return nil, err
	}
	if len(xres) != len(yres) {
		return nil, &ParseError{
			Doc:    doc.name,
			Path:   prefix + discreteRes,
			Reason: fmt.Sprintf("X/Y resolution count mismatch (%d vs %d)", len(xres), len(yres)),
		}
	}

	// Each discrete resolution pairs an independent X and Y value; record the
	// minimum of the pair as the conservative common resolution.
	uniq := make(map[int]bool)
	var resolutions []int
	for i := range xres {
		r := min(xres[i], yres[i])
		if !uniq[r] {
			uniq[r] = true
			resolutions = append(resolutions, r)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(resolutions)))

	if c.clampA4 {
		maxWidth = min(maxWidth, a4MaxWidth)
		maxHeight = min(maxHeight, a4MaxHeight)
	}

	profile := &CapabilityProfile{
		Resolutions:             resolutions,
		WidthRangeByResolution:  make(map[int]Range, len(resolutions)),
		HeightRangeByResolution: make(map[int]Range, len(resolutions)),
		Intents:                 intents,
		MaxOpticalResolution:    min(optX, optY),
	}

	// The device reports ranges at the 300 DPI reference; scale the upper
	// bound for every other resolution, lower bound unchanged.
	for _, r := range resolutions {
		profile.WidthRangeByResolution[r] = Range{Min: minWidth, Max: maxWidth * r / refDPI}
		profile.HeightRangeByResolution[r] = Range{Min: minHeight, Max: maxHeight * r / refDPI}
	}

	seenMode := make(map[ColorMode]bool)
	for _, n := range natives {
		if cm, ok := nativeToColorMode[n]; ok && !seenMode[cm] {
			seenMode[cm] = true
			profile.ColorModes = append(profile.ColorModes, cm)
		}
	}
	sort.Slice(profile.ColorModes, func(i, j int) bool {
		return profile.ColorModes[i] > profile.ColorModes[j]
	})

	seenFmt := make(map[Format]bool)
	for _, m := range mimes {
		if f, ok := mimeToFormat[m]; ok && !seenFmt[f] {
			seenFmt[f] = true
			profile.Formats = append(profile.Formats, f)
		}
	}

	return profile, nil
}

// getXML issues one GET against the device and tokenizes the response.
func (c *Client) getXML(ctx context.Context, name, path string) (*xmlDoc, error) {
	url := "http://" + c.device + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Op: name, URL: url, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: name, URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, &TransportError{Op: name, URL: url, Err: fmt.Errorf("HTTP status: %s", resp.Status)}
	}
	return parseXMLDoc(name, resp.Body)
}

// --------------------------------------------------------------------------
// Declarative XML schema evaluation
// --------------------------------------------------------------------------

// xmlDoc is a flattened XML document: character data and element presence
// indexed by namespace-qualified path.
type xmlDoc struct {
	name string
	text map[string][]string
	seen map[string]bool
}

// parseXMLDoc walks the token stream once, maintaining an element path stack
// and recording text content per path.
func parseXMLDoc(name string, r io.Reader) (*xmlDoc, error) {
	doc := &xmlDoc{
		name: name,
		text: make(map[string][]string),
		seen: make(map[string]bool),
	}
	dec := xml.NewDecoder(r)
	var stack []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Doc: name, Reason: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, qualifiedName(t.Name))
			doc.seen["/"+strings.Join(stack, "/")] = true
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			data := strings.TrimSpace(string(t))
			if data != "" && len(stack) > 0 {
				path := "/" + strings.Join(stack, "/")
				doc.text[path] = append(doc.text[path], data)
			}
		}
	}
	return doc, nil
}

// qualifiedName maps the resolved namespace URI back to the canonical eSCL
// prefix, so schema paths are stable regardless of the prefixes the device
// chose.
func qualifiedName(n xml.Name) string {
	switch n.Space {
	case nsPWG:
		return "pwg:" + n.Local
	case nsScan:
		return "scan:" + n.Local
	}
	return n.Local
}

// schemaField binds one document path to a destination. Required fields fail
// fast with a ParseError naming the missing path.
type schemaField struct {
	path     string
	required bool
	set      func(values []string) error
}

func (d *xmlDoc) apply(fields []schemaField) error {
	for _, f := range fields {
		values := d.text[f.path]
		if len(values) == 0 {
			if f.required {
				return &ParseError{Doc: d.name, Path: f.path, Reason: "required field missing"}
			}
			continue
		}
		if err := f.set(values); err != nil {
			return &ParseError{Doc: d.name, Path: f.path, Reason: err.Error()}
		}
	}
	return nil
}

func setString(dst *string) func([]string) error {
	return func(values []string) error {
		*dst = values[0]
		return nil
	}
}

func setStrings(dst *[]string) func([]string) error {
	return func(values []string) error {
		*dst = values
		return nil
	}
}

func setInt(dst *int) func([]string) error {
	return func(values []string) error {
		v, err := strconv.Atoi(values[0])
		if err != nil {
			return fmt.Errorf("not an integer: %q", values[0])
		}
		*dst = v
		return nil
	}
}

func setInts(dst *[]int) func([]string) error {
	return func(values []string) error {
		out := make([]int, len(values))
		for i, s := range values {
			v, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("not an integer: %q", s)
			}
			out[i] = v
		}
		*dst = out
		return nil
	}
}
