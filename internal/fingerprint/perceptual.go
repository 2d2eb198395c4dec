package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"math/bits"
	"strconv"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// MediaFingerprint holds the derived identifiers for one media asset
type MediaFingerprint struct {
	SHA256Hash     string
	PerceptualHash string
	Width          int
	Height         int
}

// FingerprintMedia computes both hashes for a media asset's raw bytes. The
// SHA-256 identifies exact byte content; the perceptual hash survives
// re-encoding and minor edits. Non-image content (or undecodable images)
// still gets a content hash but no perceptual hash.
func FingerprintMedia(data []byte) MediaFingerprint {
	sum := sha256.Sum256(data)
	fp := MediaFingerprint{SHA256Hash: hex.EncodeToString(sum[:])}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fp
	}

	bounds := img.Bounds()
	fp.Width = bounds.Dx()
	fp.Height = bounds.Dy()
	fp.PerceptualHash = DHash(img)
	return fp
}

// DHash computes a 64-bit difference hash: the image is reduced to a 9x8
// grayscale grid and each bit records whether a pixel is brighter than its
// right neighbor. Returned as 16 lowercase hex characters.
func DHash(img image.Image) string {
	const cols, rows = 9, 8

	grid := grayGrid(img, cols, rows)

	var hash uint64
	for y := 0; y < rows; y++ {
		for x := 0; x < cols-1; x++ {
			hash <<= 1
			if grid[y][x] > grid[y][x+1] {
				hash |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", hash)
}

// grayGrid downsamples an image to a cols x rows grid of average luminance
func grayGrid(img image.Image, cols, rows int) [][]float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	grid := make([][]float64, rows)
	for y := 0; y < rows; y++ {
		grid[y] = make([]float64, cols)
		for x := 0; x < cols; x++ {
			// Cell boundaries in source pixels
			x0 := bounds.Min.X + x*w/cols
			x1 := bounds.Min.X + (x+1)*w/cols
			y0 := bounds.Min.Y + y*h/rows
			y1 := bounds.Min.Y + (y+1)*h/rows
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if y1 <= y0 {
				y1 = y0 + 1
			}

			var sum float64
			var count int
			for py := y0; py < y1 && py < bounds.Max.Y; py++ {
				for px := x0; px < x1 && px < bounds.Max.X; px++ {
					r, g, b, _ := img.At(px, py).RGBA()
					sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
					count++
				}
			}
			if count > 0 {
				grid[y][x] = sum / float64(count)
			}
		}
	}
	return grid
}

// HammingDistance counts differing bits between two 64-bit perceptual hashes.
// Malformed input counts as maximally distant so it can never produce a
// spurious match.
func HammingDistance(a, b string) int {
	ua, errA := strconv.ParseUint(a, 16, 64)
	ub, errB := strconv.ParseUint(b, 16, 64)
	if errA != nil || errB != nil {
		return 65
	}
	return bits.OnesCount64(ua ^ ub)
}
