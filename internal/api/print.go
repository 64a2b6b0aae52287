package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mvarga-dev/printscan/internal/ipp"
)

func (s *Server) printFormHandler(c *gin.Context) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(c.Writer, "print.html", nil); err != nil {
		slog.Error("render print form", "err", err)
	}
}

func (s *Server) printHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("uploadedPDF")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploadedPDF file is required"})
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		// MaxBytesReader surfaces oversized uploads here
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}

	copies := 1
	if v := c.PostForm("copies"); v != "" {
		copies, err = strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("copies must be an integer instead of %q", v)})
			return
		}
	}

	req := &ipp.PrintRequest{
		Filename:    filepath.Base(header.Filename),
		Document:    document,
		Duplex:      c.DefaultPostForm("duplex", ipp.DuplexLong),
		PageRange:   c.PostForm("range"),
		Orientation: c.DefaultPostForm("orientation", ipp.OrientationPortrait),
		Copies:      copies,
	}

	s.printMu.Lock()
	jobID, err := s.printer.Print(c.Request.Context(), req)
	s.printMu.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("printing %q with duplex %q range %q in %q orientation %d times",
			req.Filename, req.Duplex, req.PageRange, req.Orientation, req.Copies),
		"jobId": jobID,
	})
}
