package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/carstage/carstage/pkg/depth"
	"github.com/carstage/carstage/pkg/types"
)

func testImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestDecodeBytesPNG(t *testing.T) {
	p := NewProcessor()

	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(64, 48)); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}

	img, err := p.DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("Expected 64x48, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestDecodeBytesGarbage(t *testing.T) {
	p := NewProcessor()

	if _, err := p.DecodeBytes([]byte("not an image")); err == nil {
		t.Error("Expected decode error for garbage input")
	}
}

func TestEncodePNGRoundTrip(t *testing.T) {
	p := NewProcessor()

	data, err := p.EncodePNG(testImage(32, 32))
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	img, err := p.DecodeBytes(data)
	if err != nil {
		t.Fatalf("Decode of encoded PNG failed: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("Expected 32x32, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestEncodeForService(t *testing.T) {
	p := NewProcessor()

	b64, err := p.EncodeForService(testImage(200, 100), "png", 0, 0)
	if err != nil {
		t.Fatalf("EncodeForService failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("Result is not valid base64: %v", err)
	}

	img, err := p.DecodeBytes(data)
	if err != nil {
		t.Fatalf("Decode of service payload failed: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Errorf("Expected width 200, got %d", img.Bounds().Dx())
	}
}

func TestEncodeForServiceDownscale(t *testing.T) {
	p := NewProcessor()

	b64, err := p.EncodeForService(testImage(2000, 1000), "jpg", 512, 85)
	if err != nil {
		t.Fatalf("EncodeForService failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("Result is not valid base64: %v", err)
	}

	img, err := p.DecodeBytes(data)
	if err != nil {
		t.Fatalf("Decode of service payload failed: %v", err)
	}
	if img.Bounds().Dx() != 512 {
		t.Errorf("Expected long side downscaled to 512, got %d", img.Bounds().Dx())
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()

	path := filepath.Join(dir, "out.png")
	if err := p.SaveImage(testImage(40, 30), path, "png", 0, false); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Saved file missing: %v", err)
	}

	img, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("Expected 40x30, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestCreatePlacementOverlay(t *testing.T) {
	p := NewProcessor()
	src := testImage(400, 300)

	hint := depth.Estimate(0.8)
	overlay := p.CreatePlacementOverlay(src, types.Point{X: 200, Y: 150}, 100, 60, hint)

	b := overlay.Bounds()
	if b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("Overlay must keep source dimensions, got %dx%d", b.Dx(), b.Dy())
	}

	// The anchor crosshair is drawn in red.
	nrgba, ok := overlay.(*image.NRGBA)
	if !ok {
		t.Fatal("Expected *image.NRGBA overlay")
	}
	found := false
	for x := 190; x < 210; x++ {
		c := nrgba.NRGBAAt(x, 150)
		if c.R == 255 && c.G == 0 && c.B == 0 {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected red crosshair pixels near the anchor")
	}
}
