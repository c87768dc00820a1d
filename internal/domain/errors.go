package domain

import "errors"

var (
	// ErrConfigNotFound means no readable snapshot exists within the hour
	// before a reference timestamp; the whole (zone, timestamp) run is skipped.
	ErrConfigNotFound = errors.New("raster configuration not found")

	// ErrRasterNotFound is returned by raster readers for absent or unreadable files.
	ErrRasterNotFound = errors.New("raster not found")

	// ErrInputMissing and ErrAllNaNLayer are never fatal: the input contributes zero.
	ErrInputMissing = errors.New("input raster missing")
	ErrAllNaNLayer  = errors.New("input raster has no finite value")

	ErrMisaligned     = errors.New("timestamp not aligned with tier")
	ErrAlreadyExists  = errors.New("artifact already exists")
	ErrWriteFailure   = errors.New("write failed")
	ErrRenderFailure  = errors.New("render failed")
	ErrShapeMismatch  = errors.New("raster shape does not match configuration")
	ErrUnknownCommand = errors.New("unknown command")
)
