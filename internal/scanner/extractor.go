package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Tags is the structured tag data produced for one media file.
type Tags struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Genre       string
	Year        int
	TrackNumber int
	DiscNumber  int
	ExternalID  string // external catalog release id, when the tags carry one

	// Embedded cover art, nil when absent
	Picture     []byte
	PictureMIME string
}

// Extractor maps a path to structured tag data or a per-file error.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Tags, error)
}

// TagExtractor reads embedded metadata with dhowden/tag. Extraction runs
// in its own goroutine so the context deadline bounds a hanging or
// corrupt file instead of stalling the scan loop.
type TagExtractor struct{}

// NewTagExtractor creates the tag-based extractor.
func NewTagExtractor() *TagExtractor {
	return &TagExtractor{}
}

type extractResult struct {
	tags *Tags
	err  error
}

// Extract reads the file's tags, honoring ctx for the per-file bound.
func (e *TagExtractor) Extract(ctx context.Context, path string) (*Tags, error) {
	resultCh := make(chan extractResult, 1)

	go func() {
		tags, err := e.read(path)
		resultCh <- extractResult{tags: tags, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.tags, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("metadata extraction timed out: %w", ctx.Err())
	}
}

func (e *TagExtractor) read(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	track, _ := m.Track()
	disc, _ := m.Disc()

	t := &Tags{
		Title:       strings.TrimSpace(m.Title()),
		Artist:      strings.TrimSpace(m.Artist()),
		Album:       strings.TrimSpace(m.Album()),
		AlbumArtist: strings.TrimSpace(m.AlbumArtist()),
		Genre:       strings.TrimSpace(m.Genre()),
		Year:        m.Year(),
		TrackNumber: track,
		DiscNumber:  disc,
	}

	if raw, ok := m.Raw()["MUSICBRAINZ_ALBUMID"]; ok {
		if id, ok := raw.(string); ok {
			t.ExternalID = strings.TrimSpace(id)
		}
	}

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		t.Picture = pic.Data
		t.PictureMIME = pic.MIMEType
	}

	if t.Title == "" {
		base := filepath.Base(path)
		t.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return t, nil
}
