package history

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/visionqc/visionqc/pkg/models"
)

const (
	ThumbnailWidth  = 200
	ThumbnailHeight = 150
)

var (
	thumbBackground = color.RGBA{R: 0xf1, G: 0xf5, B: 0xf9, A: 0xff}
	thumbText       = color.RGBA{R: 0x64, G: 0x74, B: 0x8b, A: 0xff}
	thumbFail       = color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}
	thumbPass       = color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}

	// Product outline inside the frame.
	thumbBox = image.Rect(60, 30, 140, 120)
)

// RenderThumbnail draws the placeholder inspection image for the n-th
// record: a product outline tinted by verdict with a caption.
func RenderThumbnail(rec models.InspectionRecord, n int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: thumbBackground}, image.Point{}, draw.Src)

	accent, caption := thumbPass, "PASS"
	if !rec.Passed() {
		accent, caption = thumbFail, "DEFECT"
	}
	strokeRect(img, thumbBox, 2, accent)
	drawCentered(img, fmt.Sprintf("IMG %d", n), 75, thumbText)
	drawCentered(img, caption, 90, accent)
	return img
}

// ExportThumbnails writes one PNG per record into dir and returns the paths.
func ExportThumbnails(dir string, records []models.InspectionRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating thumbnail directory: %w", err)
	}
	paths := make([]string, 0, len(records))
	for i, rec := range records {
		path := filepath.Join(dir, rec.ID+".png")
		if err := writePNG(path, RenderThumbnail(rec, i+1)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func strokeRect(img draw.Image, r image.Rectangle, width int, c color.Color) {
	src := &image.Uniform{C: c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}

// drawCentered draws ASCII text with its baseline at y, centered horizontally.
func drawCentered(img draw.Image, text string, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: c},
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(ThumbnailWidth/2) - width/2,
		Y: fixed.I(y),
	}
	d.DrawString(text)
}
