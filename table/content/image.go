package content

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"golang.org/x/image/draw"

	"github.com/prismpdf/pdfkit/table"
)

// ImageCell places a raster image into a cell, scaled to fit within the
// cell's box while preserving aspect ratio (the same aspect-fit contract
// builder.PageBuilder.DrawImage's width/height parameters imply). Grounded
// on optimize/images.go's use of golang.org/x/image/draw for image
// resampling and the blank-imported format registrations it also carries.
type ImageCell struct {
	Data  []byte
	Fit   FitMode
	Align table.VAlign
}

// FitMode controls how an image is scaled to its cell.
type FitMode int

const (
	// FitContain scales the image to fit entirely within the cell,
	// preserving aspect ratio (the default).
	FitContain FitMode = iota
	// FitWidth scales the image to exactly the cell's width, letting its
	// rendered height determine how much vertical space it claims.
	FitWidth
)

func (c *ImageCell) config() (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(c.Data))
	return cfg, err
}

// Layout implements table.ContentCollaborator. Images never split across
// pages (spec's Non-goals carry forward image-atomicity as the sane
// default): a cell too short for the whole image reports Nothing rather
// than cropping it.
func (c *ImageCell) Layout(area table.Rect) table.CellLayoutResult {
	cfg, err := c.config()
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return table.CellLayoutResult{Status: table.Nothing, Cause: &table.CauseOfNothing{Reason: "image data could not be decoded"}}
	}

	aspect := float64(cfg.Height) / float64(cfg.Width)
	w := area.Width
	h := w * aspect
	if c.Fit == FitContain && h > area.Height {
		h = area.Height
		w = h / aspect
	}

	if h > area.Height {
		return table.CellLayoutResult{Status: table.Nothing, Cause: &table.CauseOfNothing{Reason: "image does not fit within the cell area even at minimum scale"}}
	}

	return table.CellLayoutResult{
		Status:       table.Full,
		OccupiedArea: table.Rect{X: area.X, Y: area.Top() - h, Width: w, Height: h},
	}
}

// resample decodes and scales the image to the given pixel bounds, used by a
// Canvas adapter that needs a pre-rasterized copy rather than the original
// bytes (e.g. to downsample an oversized source image before embedding).
func (c *ImageCell) resample(dstW, dstH int) (*image.NRGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(c.Data))
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, nil
}
