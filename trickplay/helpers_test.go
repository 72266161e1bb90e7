package trickplay

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// cellColor is the solid color painted into thumbnail n of a test sheet.
func cellColor(n int) color.RGBA {
	return color.RGBA{R: uint8(10 + n), G: uint8(100 + n), B: uint8(200 - n), A: 255}
}

// sheet renders a tile holding thumbnails first..first+cells-1, row-major,
// on a canvas of cols x rows cells.
func sheet(info Info, first, cells, cols, rows int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, cols*info.Width, rows*info.Height))
	for c := 0; c < cells; c++ {
		x0 := (c % info.TileWidth) * info.Width
		y0 := (c / info.TileWidth) * info.Height
		for y := y0; y < y0+info.Height; y++ {
			for x := x0; x < x0+info.Width; x++ {
				img.SetRGBA(x, y, cellColor(first+c))
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// expectedFrame is the packed (channel-swapped) frame for thumbnail n.
func expectedFrame(info Info, n int) []byte {
	c := cellColor(n)
	frame := make([]byte, 0, info.FrameSize())
	for i := 0; i < info.Width*info.Height; i++ {
		frame = append(frame, c.B, c.G, c.R, c.A)
	}
	return frame
}

type fakeFetcher struct {
	mu      sync.Mutex
	tiles   map[int][]byte
	fail    map[int]error
	calls   int
	release chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ string, _ Info, index int) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.fail[index]; ok {
		return nil, err
	}
	data, ok := f.tiles[index]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
