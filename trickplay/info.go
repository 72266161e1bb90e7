// Package trickplay downloads seek-preview sprite sheets and repacks them into
// a flat store of raw BGRA frames the engine can overlay directly.
//
// The store has no header: frame N of size Width*Height*4 starts at byte
// N*Width*Height*4, and exactly ThumbnailCount frames are written.
package trickplay

import (
	"errors"
	"fmt"
)

// BytesPerPixel of every packed frame.
const BytesPerPixel = 4

var (
	ErrInvalidInfo = errors.New("invalid trickplay info")
	ErrMissingTile = errors.New("missing trickplay tile")
)

// Info describes a sprite sheet set as published by the library.
type Info struct {
	// TileWidth and TileHeight are the grid dimensions of one tile, in thumbnails.
	TileWidth  int `json:"tile_width"`
	TileHeight int `json:"tile_height"`

	// Width and Height are the dimensions of one thumbnail, in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	IntervalMs     int `json:"interval_ms"`
	ThumbnailCount int `json:"thumbnail_count"`
}

// Validate rejects metadata that cannot describe a sprite sheet.
func (i Info) Validate() error {
	switch {
	case i.TileWidth <= 0 || i.TileHeight <= 0:
		return fmt.Errorf("%w: tile grid %dx%d", ErrInvalidInfo, i.TileWidth, i.TileHeight)
	case i.Width <= 0 || i.Height <= 0:
		return fmt.Errorf("%w: thumbnail size %dx%d", ErrInvalidInfo, i.Width, i.Height)
	case i.ThumbnailCount <= 0:
		return fmt.Errorf("%w: thumbnail count %d", ErrInvalidInfo, i.ThumbnailCount)
	case i.IntervalMs <= 0:
		return fmt.Errorf("%w: interval %dms", ErrInvalidInfo, i.IntervalMs)
	}
	return nil
}

// ThumbnailsPerTile is the number of grid cells in one tile.
func (i Info) ThumbnailsPerTile() int {
	return i.TileWidth * i.TileHeight
}

// TotalTiles is ceil(ThumbnailCount / ThumbnailsPerTile).
func (i Info) TotalTiles() int {
	per := i.ThumbnailsPerTile()
	if per <= 0 {
		return 0
	}
	return (i.ThumbnailCount + per - 1) / per
}

// FrameSize is the byte length of one packed frame.
func (i Info) FrameSize() int {
	return i.Width * i.Height * BytesPerPixel
}

// FrameOffset is the byte offset of frame n in the packed store.
func (i Info) FrameOffset(n int) int64 {
	return int64(n) * int64(i.FrameSize())
}

// StoreSize is the exact byte length of a complete packed store.
func (i Info) StoreSize() int64 {
	return i.FrameOffset(i.ThumbnailCount)
}

// FrameAt maps a playback position to the frame covering it, clamped to the store.
func (i Info) FrameAt(seconds float64) int {
	if i.IntervalMs <= 0 || seconds <= 0 {
		return 0
	}

	n := int(seconds * 1000 / float64(i.IntervalMs))
	if n >= i.ThumbnailCount {
		return i.ThumbnailCount - 1
	}
	return n
}
