package scanner

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
)

// saveCover writes embedded cover art for an album under the asset dir,
// re-encoding to webp when the source image decodes and webp output is
// enabled. Falls back to writing the raw bytes with their original
// extension. Returns the written path.
func saveCover(assetDir, albumID string, data []byte, mimeType string, encodeWebP bool) (string, error) {
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create asset dir: %w", err)
	}

	if encodeWebP {
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			path := filepath.Join(assetDir, albumID+".webp")
			var buf bytes.Buffer
			if err := webp.Encode(&buf, img, &webp.Options{Quality: 90}); err == nil {
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return "", fmt.Errorf("failed to write cover: %w", err)
				}
				return path, nil
			}
		}
	}

	path := filepath.Join(assetDir, albumID+coverExt(mimeType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write cover: %w", err)
	}
	return path, nil
}

func coverExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
