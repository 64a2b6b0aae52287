package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mvarga-dev/printscan/internal/config"
	"github.com/mvarga-dev/printscan/internal/escl"
)

type statusResponse struct {
	Scanner   scannerStatus `json:"scanner"`
	Printer   printerStatus `json:"printer"`
	UpdatedAt string        `json:"updatedAt"`
}

type scannerStatus struct {
	Online bool        `json:"online"`
	State  string      `json:"state"`
	Device *deviceInfo `json:"device,omitempty"`
	Caps   *capsInfo   `json:"capabilities,omitempty"`
}

type deviceInfo struct {
	MakeAndModel string `json:"makeAndModel"`
	Serial       string `json:"serial"`
	Address      string `json:"address"`
}

type capsInfo struct {
	Sources     []string `json:"sources"`
	Resolutions []int    `json:"resolutions"`
	ColorModes  []string `json:"colorModes"`
	Formats     []string `json:"formats"`
	Intents     []string `json:"intents"`
}

type printerStatus struct {
	Online        bool   `json:"online"`
	State         string `json:"state"`
	MakeAndModel  string `json:"makeAndModel,omitempty"`
	AcceptingJobs bool   `json:"acceptingJobs"`
	URI           string `json:"uri"`
}

func (s *Server) statusHandler(c *gin.Context) {
	ctx := c.Request.Context()
	resp := statusResponse{UpdatedAt: time.Now().UTC().Format(time.RFC3339)}

	status, caps, err := s.scanner.Client().Capabilities(ctx)
	if err != nil {
		slog.Warn("scanner status probe failed", "device", s.scanner.Client().Device(), "err", err)
		resp.Scanner = scannerStatus{Online: false, State: "offline"}
	} else {
		resp.Scanner = scannerStatus{
			Online: true,
			State:  string(status),
			Device: &deviceInfo{
				MakeAndModel: caps.MakeAndModel,
				Serial:       caps.SerialNumber,
				Address:      s.scanner.Client().Device(),
			},
			Caps: summarizeCaps(caps),
		}
	}

	resp.Printer = printerStatus{URI: s.printer.PrinterURI()}
	info, err := s.printer.Attributes(ctx)
	if err != nil {
		slog.Warn("printer status probe failed", "uri", s.printer.PrinterURI(), "err", err)
		resp.Printer.State = "offline"
	} else {
		resp.Printer.Online = true
		resp.Printer.State = info.State
		resp.Printer.MakeAndModel = info.MakeAndModel
		resp.Printer.AcceptingJobs = info.AcceptingJobs
	}

	c.JSON(http.StatusOK, resp)
}

// summarizeCaps flattens the per-source capability profiles into the union
// the UI shows.
func summarizeCaps(caps *escl.DeviceCapabilities) *capsInfo {
	info := &capsInfo{Sources: caps.SourceNames()}

	seenRes := map[int]bool{}
	modes := newStringSet()
	formats := newStringSet()
	intents := newStringSet()
	for _, name := range info.Sources {
		p := caps.Sources[escl.InputSource(name)]
		for _, r := range p.Resolutions {
			if !seenRes[r] {
				seenRes[r] = true
				info.Resolutions = append(info.Resolutions, r)
			}
		}
		for _, m := range p.ColorModes {
			info.ColorModes = modes.add(info.ColorModes, string(m))
		}
		for _, f := range p.Formats {
			info.Formats = formats.add(info.Formats, string(f))
		}
		for _, i := range p.Intents {
			info.Intents = intents.add(info.Intents, i)
		}
	}
	return info
}

type stringSet map[string]bool

func newStringSet() stringSet { return stringSet{} }

func (s stringSet) add(dst []string, v string) []string {
	if s[v] {
		return dst
	}
	s[v] = true
	return append(dst, v)
}

func (s *Server) getSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.settings.Get())
}

func (s *Server) putSettingsHandler(c *gin.Context) {
	var d config.ScanDefaults
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.settings.Update(d); err != nil {
		slog.Warn("settings save failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, d)
}
