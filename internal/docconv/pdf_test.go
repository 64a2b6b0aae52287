package docconv

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"golang.org/x/image/tiff"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 7), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodeTIFF(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	return buf.Bytes()
}

func TestToPDF_JPEG(t *testing.T) {
	out, err := ToPDF(encodeJPEG(t, 60, 40), 300)
	if err != nil {
		t.Fatalf("ToPDF: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF: %q", out[:8])
	}
	if !bytes.Contains(out, []byte("/DCTDecode")) {
		t.Error("JPEG should be embedded with DCTDecode")
	}
}

func TestToPDF_TIFF(t *testing.T) {
	out, err := ToPDF(encodeTIFF(t, 32, 32), 200)
	if err != nil {
		t.Fatalf("ToPDF: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF: %q", out[:8])
	}
}

func TestToPDF_Garbage(t *testing.T) {
	if _, err := ToPDF([]byte("not an image at all"), 300); err == nil {
		t.Error("expected error for non-image data")
	}
}

func TestCanConvert(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, true},
		{"tiff le", []byte("II*\x00"), true},
		{"tiff be", []byte("MM\x00*"), true},
		{"pdf", []byte("%PDF-1.4"), false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanConvert(tt.data); got != tt.want {
				t.Errorf("CanConvert() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectJPEGDPI(t *testing.T) {
	// minimal JFIF APP0 header declaring 150 dpi
	jfif := []byte{
		0xFF, 0xD8,
		0xFF, 0xE0, 0x00, 0x10,
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x02, // version
		0x01,       // units: dpi
		0x00, 0x96, // X density 150
		0x00, 0x96, // Y density 150
		0x00, 0x00, // thumbnail
	}
	if got := detectJPEGDPI(jfif); got != 150 {
		t.Errorf("detectJPEGDPI() = %d, want 150", got)
	}
}

func TestDetectTIFFDPI(t *testing.T) {
	// hand-built little-endian TIFF: one IFD entry carrying XResolution 600/1
	tif := []byte{
		'I', 'I', 42, 0,
		8, 0, 0, 0, // IFD offset
		1, 0, // one entry
		26, 1, // tag 282 XResolution
		5, 0, // type RATIONAL
		1, 0, 0, 0, // count
		26, 0, 0, 0, // value offset
		0, 0, 0, 0, // next IFD
		88, 2, 0, 0, // numerator 600
		1, 0, 0, 0, // denominator 1
	}
	if got := detectTIFFDPI(tif); got != 600 {
		t.Errorf("detectTIFFDPI() = %d, want 600", got)
	}
}

func TestDetectImageDPI_NoDensity(t *testing.T) {
	if got := detectImageDPI([]byte("random bytes")); got != 0 {
		t.Errorf("detectImageDPI() = %d, want 0", got)
	}
}
