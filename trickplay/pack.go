package trickplay

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"

	// Tiles are served as JPEG by default; PNG covers re-encoded sheets.
	_ "image/jpeg"
	_ "image/png"
)

// Pack writes the frame store for tiles to w.
//
// Tiles are walked in ascending index order; a missing index aborts with
// ErrMissingTile. Thumbnails are cut row-major out of each tile. A cell that
// falls outside a tile's decoded bounds is written as a zeroed frame.
func Pack(w io.Writer, tiles map[int][]byte, info Info) error {
	if err := info.Validate(); err != nil {
		return err
	}

	var (
		written = 0
		blank   = make([]byte, info.FrameSize())
		frame   = make([]byte, info.FrameSize())
	)

	for index := 0; index < info.TotalTiles(); index++ {
		raw, ok := tiles[index]
		if !ok || len(raw) == 0 {
			return fmt.Errorf("%w: index %d", ErrMissingTile, index)
		}

		tile, err := decodeBGRA(raw)
		if err != nil {
			return fmt.Errorf("decode tile %d: %w", index, err)
		}

		for row := 0; row < info.TileHeight && written < info.ThumbnailCount; row++ {
			for col := 0; col < info.TileWidth && written < info.ThumbnailCount; col++ {
				out := blank
				if cutFrame(tile, col*info.Width, row*info.Height, info.Width, info.Height, frame) {
					out = frame
				}

				if _, err := w.Write(out); err != nil {
					return fmt.Errorf("write frame %d: %w", written, err)
				}
				written++
			}
		}
	}

	if written != info.ThumbnailCount {
		return fmt.Errorf("%w: packed %d of %d thumbnails", ErrMissingTile, written, info.ThumbnailCount)
	}

	return nil
}

// decodeBGRA decodes an image into a zero-origin RGBA buffer with the red and
// blue channels swapped, which is the byte order the engine overlay expects.
func decodeBGRA(raw []byte) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	swapRedBlue(dst.Pix)
	return dst, nil
}

func swapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += BytesPerPixel {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

// cutFrame copies the w*h rectangle at (x, y) into dst. It reports false,
// leaving dst untouched, when the rectangle is not fully inside img.
func cutFrame(img *image.RGBA, x, y, w, h int, dst []byte) bool {
	rect := image.Rect(x, y, x+w, y+h)
	if !rect.In(img.Bounds()) {
		return false
	}

	rowBytes := w * BytesPerPixel
	for r := 0; r < h; r++ {
		start := img.PixOffset(x, y+r)
		copy(dst[r*rowBytes:(r+1)*rowBytes], img.Pix[start:start+rowBytes])
	}
	return true
}
