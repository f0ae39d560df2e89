// Package covers produces responsive variants and blurred placeholders for
// post cover images.
package covers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bbrks/go-blurhash"
	"github.com/c2h5oh/datasize"
	"github.com/disintegration/imaging"
	"github.com/peterbourgon/diskv"
)

// Widths are the variant widths generated for every cover.
var Widths = []int{400, 800}

const (
	jpegQuality       = 80
	placeholderSize   = 32 // bounds the inline blurred preview
	placeholderPrefix = "data:image/jpeg;base64,"
)

// Variant is one encoded width of a cover.
type Variant struct {
	Name   string // cache key and URL file name
	Width  int
	Height int
}

// Cover describes a processed cover image.
type Cover struct {
	Width       int
	Height      int
	Blurhash    string
	Placeholder string // data URI decoded from Blurhash
	Variants    []Variant
}

// Src returns the name of the largest variant.
func (c Cover) Src() string {
	if len(c.Variants) == 0 {
		return ""
	}
	return c.Variants[len(c.Variants)-1].Name
}

// Srcset formats the variants as an HTML srcset under prefix.
func (c Cover) Srcset(prefix string) string {
	parts := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		parts[i] = prefix + v.Name + " " + strconv.Itoa(v.Width) + "w"
	}
	return strings.Join(parts, ", ")
}

// Processor renders cover variants into a disk-backed cache.
type Processor struct {
	cache *diskv.Diskv
}

// NewProcessor creates a Processor caching variants below dir.
func NewProcessor(dir string) *Processor {
	return &Processor{
		cache: diskv.New(diskv.Options{
			BasePath: dir,
			Transform: func(s string) []string {
				return nil
			},
			CacheSizeMax: uint64(8 * datasize.MB),
		}),
	}
}

// Process decodes the image at path, stores every variant in the cache
// under keys derived from slug, and returns the cover description.
func (p *Processor) Process(slug, path string) (Cover, error) {
	f, err := os.Open(path)
	if err != nil {
		return Cover{}, err
	}
	defer f.Close()
	return p.ProcessReader(slug, f)
}

// ProcessReader is Process for an already opened image.
func (p *Processor) ProcessReader(slug string, r io.Reader) (Cover, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Cover{}, fmt.Errorf("decode cover: %w", err)
	}
	bounds := img.Bounds()
	cover := Cover{Width: bounds.Dx(), Height: bounds.Dy()}

	for _, w := range Widths {
		resized := img
		if cover.Width > w {
			resized = imaging.Resize(img, w, 0, imaging.Lanczos)
		}
		rb := resized.Bounds()
		v := Variant{
			Name:   VariantName(slug, rb.Dx()),
			Width:  rb.Dx(),
			Height: rb.Dy(),
		}
		if n := len(cover.Variants); n > 0 && cover.Variants[n-1].Width == v.Width {
			// Source narrower than this width; the previous variant covers it.
			continue
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return Cover{}, fmt.Errorf("encode %s: %w", v.Name, err)
		}
		if err := p.cache.Write(v.Name, buf.Bytes()); err != nil {
			return Cover{}, fmt.Errorf("cache %s: %w", v.Name, err)
		}
		cover.Variants = append(cover.Variants, v)
	}

	small := imaging.Fit(img, placeholderSize, placeholderSize, imaging.Box)
	hash, err := blurhash.Encode(4, 3, small)
	if err != nil {
		return Cover{}, fmt.Errorf("blurhash: %w", err)
	}
	cover.Blurhash = hash
	if cover.Placeholder, err = Placeholder(hash, cover.Width, cover.Height); err != nil {
		return Cover{}, err
	}
	return cover, nil
}

// Get returns a cached variant by name.
func (p *Processor) Get(name string) ([]byte, error) {
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, os.ErrNotExist
	}
	b, err := p.cache.Read(name)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return b, nil
}

// Purge removes every cached variant.
func (p *Processor) Purge() error {
	return p.cache.EraseAll()
}

// BasePath is the cache directory.
func (p *Processor) BasePath() string {
	return p.cache.BasePath
}

// VariantName is the cache key for the width w variant of slug's cover.
func VariantName(slug string, w int) string {
	return slug + "-" + strconv.Itoa(w) + ".jpg"
}

// Placeholder decodes hash into a small JPEG data URI with the aspect
// ratio of a w×h image.
func Placeholder(hash string, w, h int) (string, error) {
	w, h = MaxSize(w, h, placeholderSize, placeholderSize)
	if w == 0 || h == 0 {
		return "", fmt.Errorf("placeholder: empty image")
	}
	img, err := blurhash.Decode(hash, w, h, 1)
	if err != nil {
		return "", fmt.Errorf("decode blurhash: %w", err)
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Rect, img, rgba.Rect.Min, draw.Src)

	var b bytes.Buffer
	if err := jpeg.Encode(&b, rgba, &jpeg.Options{Quality: 65}); err != nil {
		return "", fmt.Errorf("encode placeholder: %w", err)
	}
	return placeholderPrefix + base64.StdEncoding.EncodeToString(b.Bytes()), nil
}

// MaxSize scales w×h down to fit in maxW×maxH keeping the aspect ratio.
func MaxSize(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	if w > h {
		h = h * maxW / w
		w = maxW
	} else {
		w = w * maxH / h
		h = maxH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// CopyTo writes every cached variant into dir.
func (p *Processor) CopyTo(dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	n := 0
	for key := range p.cache.Keys(nil) {
		b, err := p.cache.Read(key)
		if err != nil {
			return n, err
		}
		if err := os.WriteFile(filepath.Join(dir, key), b, 0o644); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
