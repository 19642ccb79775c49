package engine

import (
	"context"
	"errors"
)

// Metadata describes a piece of remote media without fetching it.
type Metadata struct {
	ID       string
	Title    string
	Uploader string
	Duration int // seconds, 0 when unknown
	URL      string
}

// Progress is reported during an active transfer.
type Progress struct {
	Percent float64
}

// Format is a fetch directive. Selector is the engine's format expression;
// ExtractMP3 asks for an mp3 transcode when the engine has a transcoding
// capability, otherwise the engine requests a fallback audio container.
type Format struct {
	Selector   string
	ExtractMP3 bool
}

// Engine is the external extraction/download capability. Given a URL and a
// format directive it either produces a payload on local storage or fails.
type Engine interface {
	// Probe extracts metadata without downloading.
	Probe(ctx context.Context, url string) (*Metadata, error)

	// Fetch downloads url to the given output template. The progress
	// callback, when non-nil, receives transfer updates.
	Fetch(ctx context.Context, url string, format Format, outputTemplate string, progress func(Progress)) error

	// Search runs a flat metadata-only search and returns up to limit results.
	Search(ctx context.Context, query string, limit int) ([]Metadata, error)
}

var (
	// ErrUnavailable means the content is private, deleted, or restricted.
	// Terminal: retrying cannot help.
	ErrUnavailable = errors.New("content unavailable")

	// ErrBlocked means the remote server refused the request (403 and
	// friends). Worth retrying with a different format directive.
	ErrBlocked = errors.New("access blocked")

	// ErrNoResults means a search matched nothing.
	ErrNoResults = errors.New("no results")
)
