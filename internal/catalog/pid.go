package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// ArtistPID derives the stable identifier for an artist. An external
// catalog id wins when present; otherwise the id is a deterministic hash
// of the normalized name, so re-importing the same artist always lands on
// the same row.
func ArtistPID(externalID, name string) string {
	if externalID != "" {
		return hashPID("artist", "ext", externalID)
	}
	return hashPID("artist", normalize(name))
}

// AlbumPID derives the stable identifier for an album from the external
// catalog id when available, otherwise from (artist id, album name, year).
// Recomputing for unchanged inputs always yields the same value, which is
// what preserves ratings and play history across re-imports.
func AlbumPID(externalID, artistID, name string, year int) string {
	if externalID != "" {
		return hashPID("album", "ext", externalID)
	}
	return hashPID("album", artistID, normalize(name), fmt.Sprintf("%d", year))
}

func hashPID(parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
