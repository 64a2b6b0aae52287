package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mvarga-dev/printscan/internal/docconv"
	"github.com/mvarga-dev/printscan/internal/escl"
)

// scanFormData feeds the scan form template. Every list is rendered as a
// radio group with the first entry preselected.
type scanFormData struct {
	Sources       []string
	DefaultSource string
	MaxHeight     int
	MaxWidth      int
	ColorModes    []string
	Resolutions   []int
	Formats       []string
	Intents       []string
}

func (s *Server) scanFormHandler(c *gin.Context) {
	status, caps, err := s.scanner.Client().Capabilities(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if status != escl.StatusIdle {
		c.String(http.StatusInternalServerError, "Status is not Idle (%s)!", status)
		return
	}

	source := escl.InputSource(s.settings.Get().Source)
	profile, ok := caps.Sources[source]
	if !ok {
		// configured default source is not on this device, take any
		source = escl.InputSource(caps.SourceNames()[0])
		profile = caps.Sources[source]
	}

	data := scanFormData{
		Sources:       caps.SourceNames(),
		DefaultSource: string(source),
		Resolutions:   profile.Resolutions,
		Intents:       profile.Intents,
	}
	for _, m := range profile.ColorModes {
		data.ColorModes = append(data.ColorModes, string(m))
	}
	for _, f := range profile.Formats {
		data.Formats = append(data.Formats, string(f))
	}
	if len(profile.Resolutions) > 0 {
		// placeholders show the bounds at the 300 DPI reference
		res := 300
		if !profile.SupportsResolution(res) {
			res = profile.Resolutions[0]
		}
		data.MaxHeight = profile.HeightRangeByResolution[res].Max
		data.MaxWidth = profile.WidthRangeByResolution[res].Max
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(c.Writer, "scan.html", data); err != nil {
		slog.Error("render scan form", "err", err)
	}
}

func (s *Server) scanFormSubmitHandler(c *gin.Context) {
	req, err := s.scanRequestFromForm(c)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err)
		return
	}
	s.performScan(c, req)
}

// scanRequestFromForm builds a scan request from form fields, filling blanks
// from the stored defaults.
func (s *Server) scanRequestFromForm(c *gin.Context) (escl.ScanRequest, error) {
	defaults := s.settings.Get()
	req := escl.ScanRequest{
		Source:     escl.InputSource(formOrDefault(c, "source", defaults.Source)),
		ColorMode:  escl.ColorMode(formOrDefault(c, "color_mode", defaults.ColorMode)),
		Format:     escl.Format(formOrDefault(c, "image_format", defaults.Format)),
		Intent:     formOrDefault(c, "intent", defaults.Intent),
		Resolution: defaults.Resolution,
	}

	for _, f := range []struct {
		name string
		dst  **int
	}{
		{"height", &req.Height},
		{"width", &req.Width},
	} {
		v := c.PostForm(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("value of %s must be an integer instead of %q", f.name, v)
		}
		*f.dst = &n
	}

	if v := c.PostForm("resolution"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("value of resolution must be an integer instead of %q", v)
		}
		req.Resolution = n
	}
	return req, nil
}

func formOrDefault(c *gin.Context, name, fallback string) string {
	if v := c.PostForm(name); v != "" {
		return v
	}
	return fallback
}

// scanJSONRequest is the JSON API shape of a scan request.
type scanJSONRequest struct {
	Source     string `json:"source"`
	Height     *int   `json:"height"`
	Width      *int   `json:"width"`
	ColorMode  string `json:"colorMode"`
	Resolution int    `json:"resolution"`
	Format     string `json:"format"`
	Intent     string `json:"intent"`
}

func (s *Server) scanJSONHandler(c *gin.Context) {
	var body scanJSONRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	defaults := s.settings.Get()
	req := escl.ScanRequest{
		Source:     escl.InputSource(orDefault(body.Source, defaults.Source)),
		Height:     body.Height,
		Width:      body.Width,
		ColorMode:  escl.ColorMode(orDefault(body.ColorMode, defaults.ColorMode)),
		Resolution: body.Resolution,
		Format:     escl.Format(orDefault(body.Format, defaults.Format)),
		Intent:     orDefault(body.Intent, defaults.Intent),
	}
	if req.Resolution == 0 {
		req.Resolution = defaults.Resolution
	}
	s.performScan(c, req)
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// performScan runs the scan and streams the document back as an attachment.
// Devices that cannot produce PDF themselves send JPEG or TIFF instead; when
// the caller asked for PDF the gateway converts before responding.
func (s *Server) performScan(c *gin.Context, req escl.ScanRequest) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	doc, err := s.scanner.ScanAndFetch(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if req.Format == escl.FormatPDF && doc.Format != escl.FormatPDF && docconv.CanConvert(doc.Data) {
		pdf, err := docconv.ToPDF(doc.Data, req.Resolution)
		if err != nil {
			abortWithError(c, fmt.Errorf("convert document to PDF: %w", err))
			return
		}
		doc.Data = pdf
		doc.MIME = "application/pdf"
		doc.Format = escl.FormatPDF
		doc.Filename = strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename)) + ".pdf"
	}

	s.saveCopy(doc)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.MIME, doc.Data)
}

// saveCopy archives the document under the configured directory. Failure to
// archive never fails the request itself.
func (s *Server) saveCopy(doc *escl.Document) {
	if s.scanCfg.SaveDir == "" {
		return
	}
	if err := os.MkdirAll(s.scanCfg.SaveDir, 0755); err != nil {
		slog.Warn("create save directory", "dir", s.scanCfg.SaveDir, "err", err)
		return
	}
	name := time.Now().Format("20060102-150405") + "-" + doc.Filename
	path := filepath.Join(s.scanCfg.SaveDir, name)
	if err := os.WriteFile(path, doc.Data, 0644); err != nil {
		slog.Warn("save scan copy", "path", path, "err", err)
		return
	}
	slog.Info("saved scan copy", "path", path)
}
