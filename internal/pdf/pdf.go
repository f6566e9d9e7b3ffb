// Package pdf pulls scanned page images out of PDF files and writes
// processed pages back into a new PDF.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/tiff"
)

// ErrNoPages is returned when a selection resolves to no page at all.
var ErrNoPages = errors.New("no pages selected")

// Options selects pages and unlocks encrypted files.
type Options struct {
	// Pages is a selection such as "1-3,7". Empty means every page.
	Pages string
	// Password is tried as both user and owner password.
	Password string
}

// Page is the scan image found on one PDF page.
type Page struct {
	Number int
	Image  image.Image
}

// Document is the outcome of ExtractPages.
type Document struct {
	Filename   string
	TotalPages int
	Pages      []Page
	// Missing lists selected pages that carry no decodable image.
	Missing []int
}

// IsPDF reports whether path has a .pdf extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func configuration(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	return conf
}

// PageCount returns the number of pages in filename.
func PageCount(filename, password string) (int, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: user-provided PDF path
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	n, err := api.PageCount(f, configuration(password))
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", filename, err)
	}
	return n, nil
}

// ExtractPages decodes the largest image on each selected page. Scanned
// PDFs carry one full-page raster per page; smaller images on the same page
// (logos, stamps) are ignored.
func ExtractPages(ctx context.Context, filename string, opts Options) (*Document, error) {
	selected, err := parsePageRange(opts.Pages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.Pages, err)
	}

	f, err := os.Open(filename) //nolint:gosec // G304: user-provided PDF path
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	conf := configuration(opts.Password)
	total, err := api.PageCount(f, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", filename, err)
	}

	if len(selected) == 0 {
		for p := 1; p <= total; p++ {
			selected = append(selected, p)
		}
	}
	for _, p := range selected {
		if p > total {
			return nil, fmt.Errorf("page %d out of range (document has %d pages)", p, total)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoPages
	}

	doc := &Document{Filename: filename, TotalPages: total}
	for _, p := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := largestImageOnPage(f, p, conf)
		if err != nil {
			return nil, fmt.Errorf("failed to extract images from PDF page %d: %w", p, err)
		}
		if img == nil {
			doc.Missing = append(doc.Missing, p)
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: p, Image: img})
	}
	return doc, nil
}

func largestImageOnPage(rs io.ReadSeeker, page int, conf *model.Configuration) (image.Image, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	perPage, err := api.ExtractImagesRaw(rs, []string{strconv.Itoa(page)}, conf)
	if err != nil {
		return nil, err
	}

	var (
		best     image.Image
		bestArea int
	)
	for _, imgs := range perPage {
		// Object numbers give a stable order when two images tie on area.
		objs := make([]int, 0, len(imgs))
		for obj := range imgs {
			objs = append(objs, obj)
		}
		slices.Sort(objs)
		for _, obj := range objs {
			decoded, _, err := image.Decode(imgs[obj])
			if err != nil {
				// Image filters the Go decoders cannot read are skipped.
				continue
			}
			b := decoded.Bounds()
			if area := b.Dx() * b.Dy(); area > bestArea {
				best, bestArea = decoded, area
			}
		}
	}
	return best, nil
}

// WriteDocument writes images as the pages of a new PDF, one image per page.
func WriteDocument(w io.Writer, images []image.Image) error {
	if len(images) == 0 {
		return ErrNoPages
	}
	readers := make([]io.Reader, 0, len(images))
	for i, img := range images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		readers = append(readers, &buf)
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.Scale = 1
	imp.Pos = types.Center
	if err := api.ImportImages(nil, w, readers, imp, nil); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return nil
}

// WriteDocumentFile is WriteDocument into a new file at path.
func WriteDocumentFile(path string, images []image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // G304: output path from CLI flags
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := WriteDocument(f, images); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// parsePageRange parses a selection like "1-5" or "1,3,5". Pages are
// 1-based; duplicates keep their first position.
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		for _, p := range tokenPages {
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}
	return pages, nil
}

// parseRangeToken parses either a single page token ("3") or a range ("1-5").
func parseRangeToken(part string) ([]int, error) {
	if part == "" {
		return nil, errors.New("empty page token")
	}
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start < 1 {
			return nil, fmt.Errorf("pages start at 1, got %d", start)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	if page < 1 {
		return nil, fmt.Errorf("pages start at 1, got %d", page)
	}
	return []int{page}, nil
}
