// Package escl implements the client side of the eSCL (AirScan) network
// scanner protocol: capability discovery, scan-configuration validation and
// the two-phase job submission exchange.
package escl

import (
	"fmt"
	"sort"
)

// DeviceStatus is the scanner state reported by /eSCL/ScannerStatus.
// Only StatusIdle permits a new scan job.
type DeviceStatus string

const (
	StatusIdle       DeviceStatus = "Idle"
	StatusProcessing DeviceStatus = "Processing"
	StatusTesting    DeviceStatus = "Testing"
	StatusStopped    DeviceStatus = "Stopped"
	StatusDown       DeviceStatus = "Down"
)

// InputSource selects the scanner input to use for a job.
type InputSource string

const (
	SourcePlaten InputSource = "Platen"
	SourceFeeder InputSource = "Feeder"
)

// ColorMode is a scan color mode in gateway vocabulary. The device-native
// tokens (RGB24 etc.) never leave this package.
type ColorMode string

const (
	ColorBlackAndWhite ColorMode = "BlackAndWhite"
	ColorGrayscale     ColorMode = "Grayscale"
	ColorColor         ColorMode = "Color"
)

// Format is an output document format.
type Format string

const (
	FormatPDF  Format = "PDF"
	FormatJPEG Format = "JPEG"
)

// Scanner-dependent vocabulary tables.
var (
	colorModeToNative = map[ColorMode]string{
		ColorBlackAndWhite: "BlackAndWhite1",
		ColorGrayscale:     "Grayscale8",
		ColorColor:         "RGB24",
	}
	formatToMIME = map[Format]string{
		FormatPDF:  "application/pdf",
		FormatJPEG: "image/jpeg",
	}

	nativeToColorMode = invert(colorModeToNative)
	mimeToFormat      = invert(formatToMIME)
)

func invert[K, V comparable](m map[K]V) map[V]K {
	r := make(map[V]K, len(m))
	for k, v := range m {
		r[v] = k
	}
	return r
}

// KnownColorModes returns the gateway color-mode vocabulary, sorted.
func KnownColorModes() []string {
	return sortedKeys(colorModeToNative)
}

// KnownFormats returns the gateway format vocabulary, sorted.
func KnownFormats() []string {
	return sortedKeys(formatToMIME)
}

// FormatForMIME maps a MIME type back to a format name. The bool reports
// whether the MIME type is part of the gateway vocabulary.
func FormatForMIME(mime string) (Format, bool) {
	f, ok := mimeToFormat[mime]
	return f, ok
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Range is an inclusive pixel range.
type Range struct {
	Min int
	Max int
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool { return v >= r.Min && v <= r.Max }

func (r Range) String() string { return fmt.Sprintf("[%d, %d]", r.Min, r.Max) }

// CapabilityProfile describes what a single input source supports.
//
// Width and height ranges are keyed by resolution: the device reports pixel
// bounds at the 300 DPI reference, and the parser derives the bounds for
// every other discrete resolution by linear scaling.
type CapabilityProfile struct {
	Resolutions []int // supported DPI values, unique, descending

	WidthRangeByResolution  map[int]Range
	HeightRangeByResolution map[int]Range

	ColorModes []ColorMode // advertised modes, gateway vocabulary
	Formats    []Format    // advertised formats, gateway vocabulary
	Intents    []string    // advertised intents, device vocabulary

	MaxOpticalResolution int // min of reported X/Y maxima, informational
}

// SupportsResolution reports whether res is one of the profile's discrete
// resolutions.
func (p *CapabilityProfile) SupportsResolution(res int) bool {
	for _, r := range p.Resolutions {
		if r == res {
			return true
		}
	}
	return false
}

// DeviceCapabilities is a snapshot of one capabilities document. It is
// constructed fresh on every fetch and never cached.
type DeviceCapabilities struct {
	Version      string
	MakeAndModel string
	SerialNumber string

	Sources map[InputSource]*CapabilityProfile
}

// SourceNames returns the advertised input sources, sorted.
func (c *DeviceCapabilities) SourceNames() []string {
	return sortedKeys(c.Sources)
}

// ScanRequest is a user-requested scan configuration. Height and Width are
// optional; nil means "use the maximum the device allows at the chosen
// resolution". A zero Resolution falls back to 300 DPI during validation.
//
// A request is only meaningful relative to a specific DeviceCapabilities
// snapshot.
type ScanRequest struct {
	Source     InputSource
	Height     *int // pixels at the requested resolution
	Width      *int // pixels at the requested resolution
	ColorMode  ColorMode
	Resolution int // DPI
	Format     Format
	Intent     string
}

// JobDescriptor holds fully resolved, device-ready scan parameters. It is
// only constructible through Resolve, which guarantees every field has been
// validated against a capabilities snapshot.
//
// Height and Width are expressed in the device's 300 DPI reference units
// regardless of the negotiated resolution.
type JobDescriptor struct {
	Version     string
	Height      int
	Width       int
	Source      InputSource
	ColorMode   string // device-native token
	XResolution int
	YResolution int
	Format      string // MIME type
	Intent      string
}
