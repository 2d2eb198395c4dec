package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
)

// gradientImage builds a horizontal gradient, which has a stable non-trivial
// dHash, with optional per-pixel noise to simulate re-encoding artifacts.
func gradientImage(w, h int, noise uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / w)
			if (x+y)%7 == 0 {
				v += noise
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestDHashDeterminism(t *testing.T) {
	img := gradientImage(64, 64, 0)
	assert.Equal(t, DHash(img), DHash(img))
	assert.Len(t, DHash(img), 16)
}

func TestDHashRobustToResize(t *testing.T) {
	small := gradientImage(32, 32, 0)
	large := gradientImage(128, 128, 0)

	dist := HammingDistance(DHash(small), DHash(large))
	assert.LessOrEqual(t, dist, 10, "resized versions of the same image should be near")
}

func TestDHashSeparatesDifferentImages(t *testing.T) {
	gradient := gradientImage(64, 64, 0)

	// Vertical gradient, structurally different
	vertical := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(y * 255 / 64)
			vertical.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}

	dist := HammingDistance(DHash(gradient), DHash(vertical))
	assert.Greater(t, dist, 10, "different images should be far apart")
}

func TestFingerprintMedia(t *testing.T) {
	data := encodePNG(t, gradientImage(64, 48, 0))

	fp := FingerprintMedia(data)
	assert.NotEmpty(t, fp.SHA256Hash)
	assert.Len(t, fp.PerceptualHash, 16)
	assert.Equal(t, 64, fp.Width)
	assert.Equal(t, 48, fp.Height)

	// Identical bytes, identical fingerprints
	again := FingerprintMedia(data)
	assert.Equal(t, fp, again)
}

func TestFingerprintMediaNonImage(t *testing.T) {
	fp := FingerprintMedia([]byte("not an image at all"))
	assert.NotEmpty(t, fp.SHA256Hash)
	assert.Empty(t, fp.PerceptualHash)
	assert.Zero(t, fp.Width)
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0, HammingDistance("00000000000000ff", "00000000000000ff"))
	assert.Equal(t, 1, HammingDistance("0000000000000000", "0000000000000001"))
	assert.Equal(t, 64, HammingDistance("0000000000000000", "ffffffffffffffff"))
	assert.Equal(t, 65, HammingDistance("zzzz", "0000000000000000"), "malformed input is maximally distant")
	assert.Equal(t, 65, HammingDistance("", ""))
}
