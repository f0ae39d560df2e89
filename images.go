package folio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxImageWidth  = 800
	maxImagePixels = 40_000_000
	jpegQuality    = 80
	uploadsSubdir  = "uploads"
)

// UploadsPrefix is the URL path uploaded images are served under.
const UploadsPrefix = "/public/" + uploadsSubdir + "/"

var errImageDimensions = errors.New("image dimensions too large")

// processImage scales an uploaded image down to maxImageWidth and encodes
// it as JPEG. Transparent areas are flattened onto white.
func processImage(data []byte, originalName string) (Image, []byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width*cfg.Height > maxImagePixels {
		return Image{}, nil, fmt.Errorf("%s %dx%d: %w", format, cfg.Width, cfg.Height, errImageDimensions)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode %s: %w", format, err)
	}

	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if w > maxImageWidth {
		h = max(1, h*maxImageWidth/w)
		w = maxImageWidth
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	name := Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if name == "" {
		name = "image"
	}
	return Image{
		Filename:     name + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   time.Now().UTC().Format(time.RFC3339),
	}, buf.Bytes(), nil
}

// uniqueFilename appends a counter until the name is free both on disk and
// in the images table.
func (a *App) uniqueFilename(filename string) (string, error) {
	dir := filepath.Join(a.Config.StaticDir, uploadsSubdir)
	base := strings.TrimSuffix(filename, ".jpg")
	candidate := filename
	for n := 2; ; n++ {
		_, statErr := os.Stat(filepath.Join(dir, candidate))
		taken, err := a.Store.ImageExists(candidate)
		if err != nil {
			return "", err
		}
		if statErr != nil && !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, n)
	}
}

// UploadResponse is returned to editors that ask for JSON, so a dropped
// image can be inserted as Markdown without reloading the list.
type UploadResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func (a *App) handleImageUpload(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	limit := a.Config.MaxUploadSize.Bytes()
	if uint64(file.Size) > limit {
		return c.String(http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (%s, max %s)",
			humanize.Bytes(uint64(file.Size)), humanize.Bytes(limit)))
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(f, int64(limit)))
	f.Close()
	if err != nil {
		return err
	}

	img, out, err := processImage(data, file.Filename)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid image: "+err.Error())
	}
	if img.Filename, err = a.uniqueFilename(img.Filename); err != nil {
		return err
	}

	dir := filepath.Join(a.Config.StaticDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, img.Filename), out, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if err := a.Store.SaveImage(img); err != nil {
		return err
	}

	if wantsJSON(c) {
		url := UploadsPrefix + img.Filename
		return c.JSON(http.StatusOK, UploadResponse{
			Filename: img.Filename,
			URL:      url,
			Markdown: "![" + img.OriginalName + "](" + url + ")",
			Width:    img.Width,
			Height:   img.Height,
		})
	}
	return a.renderImageList(c)
}

func (a *App) handleImageDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}

	filename := filepath.Base(c.Param("filename"))
	if filename == "" || filename == "." || filename == "/" {
		return c.String(http.StatusBadRequest, "Filename required")
	}

	// Already gone is fine.
	_ = os.Remove(filepath.Join(a.Config.StaticDir, uploadsSubdir, filename))

	if err := a.Store.DeleteImage(filename); err != nil {
		return err
	}
	return a.renderImageList(c)
}

func (a *App) handleImageList(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return a.renderImageList(c)
}

func (a *App) renderImageList(c echo.Context) error {
	images, err := a.Store.ListImages()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminImages(images, CsrfToken(c)))
}
