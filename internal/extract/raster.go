package extract

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
)

// rasterizePage renders page pageNr of the PDF at path into a PNG under
// outDir at the given zoom factor (2.0 => 2x), using the poppler
// `pdftoppm` CLI tool. There is no pure-Go PDF rasterizer in the pack or
// a typical Go module dependency tree; shelling out to a well-known
// system tool is the teacher's own pattern for capabilities outside
// pdfcpu's manipulation-only scope.
func rasterizePage(path string, pageNr int, outDir string, zoom float64) (string, error) {
	dpi := int(72 * zoom)
	outPrefix := filepath.Join(outDir, "page")
	cmd := exec.Command("pdftoppm",
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(pageNr),
		"-l", strconv.Itoa(pageNr),
		path, outPrefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, string(out))
	}

	matches, err := filepath.Glob(outPrefix + "*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no output for page %d", pageNr)
	}
	return matches[0], nil
}

// resizeForOCR implements the >2MiB image OCR pre-pass: resize so the
// longer side is <= 2048px, Lanczos filter, aspect preserved, into a
// temp file the caller must clean up.
func resizeForOCR(path string) (string, func(), error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	const maxSide = 2048
	var resized image.Image = img
	if w > maxSide || h > maxSide {
		if w >= h {
			resized = imaging.Resize(img, maxSide, 0, imaging.Lanczos)
		} else {
			resized = imaging.Resize(img, 0, maxSide, imaging.Lanczos)
		}
	}

	tmp, err := os.CreateTemp("", "extract-resize-*.jpg")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if err := jpeg.Encode(tmp, resized, &jpeg.Options{Quality: 95}); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("encode resized jpeg: %w", err)
	}
	tmp.Close()
	return tmp.Name(), cleanup, nil
}
