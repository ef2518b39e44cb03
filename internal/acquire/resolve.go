// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"path/filepath"
	"strings"
)

// documentExt is the extension given to every downloaded document.
const documentExt = ".pdf"

var slugReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

// Slug returns a filesystem-safe filename stem for an external id. Old-style
// arXiv ids contain a slash ("hep-th/9901001"), which becomes an underscore.
func Slug(externalID string) string {
	s := slugReplacer.Replace(strings.TrimSpace(externalID))
	if s == "" || s == "." || s == ".." {
		return "unknown"
	}
	return s
}

// DocumentPath returns where the document for externalID is stored under dir.
func DocumentPath(dir, externalID string) string {
	return filepath.Join(dir, Slug(externalID)+documentExt)
}
