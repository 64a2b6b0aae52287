package escl

import "strconv"

// Resolve validates a ScanRequest against a capabilities snapshot and
// produces a device-ready JobDescriptor. It is pure: no I/O, no retained
// state, identical inputs yield identical descriptors.
//
// The validation order is fixed. Resolution is checked before height/width
// because the pixel ranges are keyed by resolution; defaults are filled only
// after the resolution is known.
func Resolve(caps *DeviceCapabilities, req ScanRequest) (*JobDescriptor, error) {
	profile, ok := caps.Sources[req.Source]
	if !ok {
		return nil, &ValidationError{
			Field:   "inputSource",
			Value:   string(req.Source),
			Allowed: caps.SourceNames(),
		}
	}

	res := req.Resolution
	if res == 0 {
		// Documented fallback for an omitted resolution. Callers that care
		// should log before getting here; see Orchestrator.Scan.
		res = refDPI
	}
	if !profile.SupportsResolution(res) {
		return nil, &ValidationError{
			Field:   "resolution",
			Value:   strconv.Itoa(res),
			Allowed: itoas(profile.Resolutions),
		}
	}

	heightRange := profile.HeightRangeByResolution[res]
	widthRange := profile.WidthRangeByResolution[res]

	height := heightRange.Max
	if req.Height != nil {
		height = *req.Height
	}
	width := widthRange.Max
	if req.Width != nil {
		width = *req.Width
	}

	if !heightRange.Contains(height) {
		return nil, &ValidationError{
			Field:   "height",
			Value:   strconv.Itoa(height),
			Allowed: []string{heightRange.String()},
		}
	}
	if !widthRange.Contains(width) {
		return nil, &ValidationError{
			Field:   "width",
			Value:   strconv.Itoa(width),
			Allowed: []string{widthRange.String()},
		}
	}

	native, ok := colorModeToNative[req.ColorMode]
	if !ok {
		return nil, &ValidationError{
			Field:   "colorMode",
			Value:   string(req.ColorMode),
			Allowed: KnownColorModes(),
		}
	}

	mime, ok := formatToMIME[req.Format]
	if !ok {
		return nil, &ValidationError{
			Field:   "format",
			Value:   string(req.Format),
			Allowed: KnownFormats(),
		}
	}

	if !contains(profile.Intents, req.Intent) {
		return nil, &ValidationError{
			Field:   "intent",
			Value:   req.Intent,
			Allowed: profile.Intents,
		}
	}

	// The wire always speaks reference-DPI units, so scale back from the
	// negotiated resolution. Floor division; the round trip is lossy when
	// 300 does not divide evenly.
	return &JobDescriptor{
		Version:     caps.Version,
		Height:      height * refDPI / res,
		Width:       width * refDPI / res,
		Source:      req.Source,
		ColorMode:   native,
		XResolution: res,
		YResolution: res,
		Format:      mime,
		Intent:      req.Intent,
	}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func itoas(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}
