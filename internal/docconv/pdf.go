// Package docconv converts fetched scan documents between formats. Some
// devices stream JPEG (or TIFF for black-and-white) even when the job asked
// for PDF; the gateway wraps those into a single-page PDF before handing the
// result to the caller.
package docconv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/tiff"
)

// CanConvert reports whether ToPDF understands the document data.
func CanConvert(data []byte) bool {
	return isJPEG(data) || isTIFF(data)
}

// ToPDF wraps a scanned page into a PDF sized to the page's physical
// dimensions. The DPI embedded in the image data wins; fallbackDPI (usually
// the negotiated scan resolution) is used when the image carries none.
func ToPDF(data []byte, fallbackDPI int) ([]byte, error) {
	dpi := detectImageDPI(data)
	if dpi <= 0 {
		dpi = fallbackDPI
	}
	if dpi <= 0 {
		dpi = 300
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	widthMM := float64(cfg.Width) / float64(dpi) * 25.4
	heightMM := float64(cfg.Height) / float64(dpi) * 25.4

	pdf := fpdf.New("P", "mm", "", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: widthMM, Ht: heightMM})

	switch {
	case isTIFF(data):
		// fpdf cannot embed TIFF; re-encode as a 1-bit paletted PNG, which is
		// what bilevel scans come down as.
		img, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode TIFF: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, toBitonal(img)); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
		pdf.RegisterImageOptionsReader("page", fpdf.ImageOptions{ImageType: "PNG"}, &buf)
	case isJPEG(data):
		pdf.RegisterImageOptionsReader("page", fpdf.ImageOptions{ImageType: "JPEG"}, bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported image data")
	}
	pdf.ImageOptions("page", 0, 0, widthMM, heightMM, false, fpdf.ImageOptions{}, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return out.Bytes(), nil
}

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

func isTIFF(data []byte) bool {
	return len(data) >= 4 &&
		((data[0] == 'I' && data[1] == 'I') || (data[0] == 'M' && data[1] == 'M'))
}

// detectImageDPI extracts the X resolution from image data: the IFD
// XResolution tag for TIFF, the JFIF APP0 density for JPEG. Returns 0 when
// the data carries no usable density.
func detectImageDPI(data []byte) int {
	switch {
	case isTIFF(data) && len(data) >= 8:
		return detectTIFFDPI(data)
	case isJPEG(data):
		return detectJPEGDPI(data)
	}
	return 0
}

func detectTIFFDPI(data []byte) int {
	var bo binary.ByteOrder
	if data[0] == 'I' {
		bo = binary.LittleEndian
	} else {
		bo = binary.BigEndian
	}
	if bo.Uint16(data[2:4]) != 42 {
		return 0
	}
	ifdOff := int(bo.Uint32(data[4:8]))
	if ifdOff+2 > len(data) {
		return 0
	}
	n := int(bo.Uint16(data[ifdOff : ifdOff+2]))
	for i := range n {
		off := ifdOff + 2 + i*12
		if off+12 > len(data) {
			break
		}
		if bo.Uint16(data[off:off+2]) != 282 { // XResolution, RATIONAL
			continue
		}
		valOff := int(bo.Uint32(data[off+8 : off+12]))
		if valOff+8 > len(data) {
			return 0
		}
		num := bo.Uint32(data[valOff : valOff+4])
		den := bo.Uint32(data[valOff+4 : valOff+8])
		if den == 0 {
			return 0
		}
		return int(num / den)
	}
	return 0
}

func detectJPEGDPI(data []byte) int {
	i := 2
	for i+4 < len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if marker == 0xE0 && segLen >= 14 { // APP0 (JFIF)
			seg := data[i+4:]
			if len(seg) >= 10 && string(seg[0:5]) == "JFIF\x00" {
				units := seg[7]
				xd := int(binary.BigEndian.Uint16(seg[8:10]))
				if units == 1 { // dots per inch
					return xd
				}
				if units == 2 { // dots per cm
					return int(float64(xd) * 2.54)
				}
			}
		}
		i += 2 + segLen
	}
	return 0
}

// toBitonal converts an image to a 1-bit paletted black & white image.
func toBitonal(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	dst := image.NewPaletted(bounds, color.Palette{color.White, color.Black})

	// tiff.Decode hands back *image.Gray for bilevel data
	if gray, ok := img.(*image.Gray); ok {
		w := bounds.Dx()
		for y := range bounds.Dy() {
			srcRow := gray.Pix[y*gray.Stride : y*gray.Stride+w]
			dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+w]
			for x, v := range srcRow {
				if v < 128 {
					dstRow[x] = 1
				}
			}
		}
		return dst
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if r < 0x8000 {
				dst.SetColorIndex(x, y, 1)
			}
		}
	}
	return dst
}
