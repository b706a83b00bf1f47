package media

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// ExifHints are the metadata signals extracted from an image's EXIF
// block that are relevant to manipulation detection. All fields are
// best-effort; a missing or unparseable EXIF block yields zero hints.
type ExifHints struct {
	// Software is the EXIF Software tag, typically the name of the
	// application that last wrote the file.
	Software string

	// CreatedAt is the EXIF DateTimeOriginal (or DateTime) tag as the
	// file recorded it.
	CreatedAt string

	// HasGPS reports whether the image carries GPS coordinates.
	HasGPS bool
}

// Empty reports whether no hints were extracted.
func (h ExifHints) Empty() bool {
	return h.Software == "" && h.CreatedAt == "" && !h.HasGPS
}

// editorNames are software identifiers that indicate an image passed
// through an editing tool after capture. Matched case-insensitively as
// substrings of the EXIF Software tag.
var editorNames = []string{
	"photoshop",
	"gimp",
	"lightroom",
	"affinity",
	"pixelmator",
	"canva",
	"snapseed",
	"facetune",
	"stable diffusion",
	"midjourney",
	"dall-e",
}

// Edited reports whether the Software hint names a known image editor
// or generator. A camera-written file names the camera firmware here,
// not an editor.
func (h ExifHints) Edited() bool {
	if h.Software == "" {
		return false
	}
	software := strings.ToLower(h.Software)
	for _, name := range editorNames {
		if strings.Contains(software, name) {
			return true
		}
	}
	return false
}

// ExtractHints pulls manipulation-relevant tags from an image's EXIF
// block. Images without EXIF data (most web-optimized images) return
// zero hints; that is not an error.
func ExtractHints(data []byte) ExifHints {
	var hints ExifHints

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return hints
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return hints
	}

	for _, entry := range entries {
		switch entry.TagName {
		case "Software":
			hints.Software = entry.Formatted
		case "DateTimeOriginal":
			hints.CreatedAt = entry.Formatted
		case "DateTime":
			if hints.CreatedAt == "" {
				hints.CreatedAt = entry.Formatted
			}
		case "GPSLatitude", "GPSLongitude":
			hints.HasGPS = true
		}
	}
	return hints
}
