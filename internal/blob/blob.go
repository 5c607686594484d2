// Package blob implements the content-addressed document storage layer
// (blob store, C1): sharded on-disk layout plus image-to-PDF
// normalization on ingest.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/tedkulp/cartulary-go/internal/apperr"
)

// imageExtensions are normalized to PDF on ingest.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".tif": true, ".tiff": true, ".bmp": true, ".gif": true,
}

// PutResult is returned by Store.Put.
type PutResult struct {
	RelativePath   string
	FinalFilename  string
	MimeType       string
	Checksum       string
	Size           int64
}

// Store is a filesystem-backed, content-addressed blob store rooted at
// a configured directory. Layout: <two-char-prefix>/<doc_id>/<filename>,
// where prefix is the first two characters of doc_id.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root, creating it if necessary.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

// shardDir returns the <root>/<prefix>/<docID> directory for a document.
func (s *Store) shardDir(docID string) string {
	prefix := docID
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(s.root, prefix, docID)
}

// sanitizeFilename strips directory components and rejects traversal,
// keeping only the base name.
func sanitizeFilename(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == "" || base == string(filepath.Separator) {
		return "", apperr.InvalidInputf("invalid filename %q", name)
	}
	return base, nil
}

// Put stores r under the document's shard directory, sanitizing the
// filename and converting supported image types to PDF. The checksum is
// computed from the same streamed bytes being written to disk.
func (s *Store) Put(docID, filename string, r io.Reader) (PutResult, error) {
	safeName, err := sanitizeFilename(filename)
	if err != nil {
		return PutResult{}, err
	}

	dir := s.shardDir(docID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return PutResult{}, fmt.Errorf("create document directory: %w", err)
	}

	destPath := filepath.Join(dir, safeName)
	f, err := os.Create(destPath)
	if err != nil {
		return PutResult{}, fmt.Errorf("create blob file: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, hasher))
	closeErr := f.Close()
	if err != nil {
		os.Remove(destPath)
		return PutResult{}, fmt.Errorf("write blob: %w", err)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return PutResult{}, fmt.Errorf("close blob: %w", closeErr)
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	mimeType := mimeFromExtension(safeName)
	relPath := filepath.Join(filepath.Base(filepath.Dir(dir)), docID, safeName)

	ext := strings.ToLower(filepath.Ext(safeName))
	if imageExtensions[ext] {
		pdfPath, pdfName, err := normalizeImageToPDF(destPath, dir, safeName)
		if err != nil {
			os.Remove(destPath)
			return PutResult{}, fmt.Errorf("normalize image to pdf: %w", err)
		}
		os.Remove(destPath) // remove the originating image; only the PDF remains

		info, err := os.Stat(pdfPath)
		if err != nil {
			return PutResult{}, fmt.Errorf("stat normalized pdf: %w", err)
		}

		return PutResult{
			RelativePath:  filepath.Join(filepath.Base(filepath.Dir(dir)), docID, pdfName),
			FinalFilename: pdfName,
			MimeType:      "application/pdf",
			Checksum:      checksum,
			Size:          info.Size(),
		}, nil
	}

	return PutResult{
		RelativePath:  relPath,
		FinalFilename: safeName,
		MimeType:      mimeType,
		Checksum:      checksum,
		Size:          size,
	}, nil
}

// normalizeImageToPDF flattens an image onto a white background and
// imports it as a single-page PDF via pdfcpu, replacing the extension
// with .pdf.
func normalizeImageToPDF(srcPath, dir, originalName string) (pdfPath, pdfName string, err error) {
	flatPath, err := flattenToJPEG(srcPath, dir)
	if err != nil {
		return "", "", err
	}
	defer os.Remove(flatPath)

	pdfName = strings.TrimSuffix(originalName, filepath.Ext(originalName)) + ".pdf"
	pdfPath = filepath.Join(dir, pdfName)

	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImagesFile([]string{flatPath}, pdfPath, imp, nil); err != nil {
		return "", "", fmt.Errorf("pdfcpu import: %w", err)
	}
	return pdfPath, pdfName, nil
}

// flattenToJPEG decodes srcPath and flattens RGBA/LA/P modes onto a
// white RGB background, writing a quality-95 JPEG to a temp file in dir.
func flattenToJPEG(srcPath, dir string) (string, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)

	out, err := os.CreateTemp(dir, "flatten-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create temp flatten file: %w", err)
	}
	defer out.Close()

	// Encode with imaging, falling back to the stdlib jpeg encoder if
	// that fails.
	if err := imaging.Encode(out, flat, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		_ = jpeg.Encode(out, flat, &jpeg.Options{Quality: 95})
	}

	return out.Name(), nil
}

// Open opens a stored blob for reading by its relative path.
func (s *Store) Open(relativePath string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.root, relativePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFoundf("blob %q does not exist", relativePath)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Size returns the size in bytes of a stored blob.
func (s *Store) Size(relativePath string) (int64, error) {
	info, err := os.Stat(filepath.Join(s.root, relativePath))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, apperr.NotFoundf("blob %q does not exist", relativePath)
		}
		return 0, fmt.Errorf("stat blob: %w", err)
	}
	return info.Size(), nil
}

// Exists reports whether a blob exists at the given relative path.
func (s *Store) Exists(relativePath string) bool {
	_, err := os.Stat(filepath.Join(s.root, relativePath))
	return err == nil
}

// Delete removes a blob and prunes now-empty parent and grandparent
// directories. Non-empty directory errors are ignored.
func (s *Store) Delete(relativePath string) error {
	full := filepath.Join(s.root, relativePath)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}

	dir := filepath.Dir(full)
	for i := 0; i < 2 && dir != s.root && strings.HasPrefix(dir, s.root); i++ {
		if err := os.Remove(dir); err != nil {
			break // not empty, or already gone; either way stop pruning
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Checksum computes the SHA-256 hex digest of r, rewinding to the start
// when r supports seeking so the caller can reuse the stream afterward.
func Checksum(r io.ReadSeeker) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind after checksum: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func mimeFromExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
