package uploader

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"skinfetch/pkg/storage"
)

// timeNow is replaceable in tests that exercise the fallback name.
var timeNow = time.Now

// ResolveUploadName derives the destination API filename and skin type for a
// local image.
//
// A "_steve" or "_alex" suffix anywhere in the stem (case-insensitive) fixes
// the type and is stripped from the name. Files without a suffix default to
// steve, except files living in the capes folder: the destination API cannot
// accept those, so they are skipped entirely (ok=false), not failed.
func ResolveUploadName(path string) (filename string, skinType string, ok bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	folder := filepath.Base(filepath.Dir(path))
	lower := strings.ToLower(stem)

	var name string
	switch {
	case strings.Contains(lower, "_steve"):
		name = strings.ReplaceAll(lower, "_steve", "")
		skinType = "steve"
	case strings.Contains(lower, "_alex"):
		name = strings.ReplaceAll(lower, "_alex", "")
		skinType = "alex"
	case folder == storage.SubdirCapes:
		return "", "", false
	default:
		name = stem
		skinType = "steve"
	}

	name = sanitizeName(name)
	if name == "" {
		name = fmt.Sprintf("skin_%d", timeNow().Unix())
	}

	return fmt.Sprintf("%s_%s%s", name, skinType, storage.ImageExt), skinType, true
}

// sanitizeName strips every character outside alphanumerics and "_-".
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
