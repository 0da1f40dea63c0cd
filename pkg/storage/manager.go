package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/littleskin"
	"skinfetch/pkg/logger"
)

// Subdirectories of the image root, one per texture class.
const (
	SubdirSkins  = "skins"
	SubdirCapes  = "capes"
	SubdirOthers = "others"
)

// saveChunkSize is the write buffer used when streaming image bytes to disk.
const saveChunkSize = 8192

// ImageExt is the only file extension the local tree holds.
const ImageExt = ".png"

// Subdirs lists the managed subdirectories in scan order.
var Subdirs = []string{SubdirSkins, SubdirCapes, SubdirOthers}

// Manager owns the local image tree: a root directory with skins/, capes/
// and others/ subdirectories holding png files.
type Manager struct {
	root   string
	logger logger.Logger
}

// NewManager creates a storage manager rooted at the given directory,
// creating the root if it does not exist.
func NewManager(root string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image root: %w", err)
	}

	return &Manager{root: root, logger: log}, nil
}

// Root returns the root directory path.
func (m *Manager) Root() string {
	return m.root
}

// SubdirForType maps a texture type to its destination subdirectory:
// player skins go to skins/, capes to capes/, everything else to others/.
func SubdirForType(textureType string) string {
	switch {
	case littleskin.IsSkin(textureType):
		return SubdirSkins
	case littleskin.IsCape(textureType):
		return SubdirCapes
	default:
		return SubdirOthers
	}
}

// SanitizeFilename strips every character outside alphanumerics and "._-".
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildTextureFilename derives the destination filename for a downloaded
// texture: "{name}_{type}.png" when the texture has a display name, else
// "{id}_{hash prefix}.png".
func BuildTextureFilename(name, textureType, hash string, id int) string {
	var filename string
	if strings.TrimSpace(name) != "" {
		filename = fmt.Sprintf("%s_%s%s", name, textureType, ImageExt)
	} else {
		prefix := hash
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		filename = fmt.Sprintf("%d_%s%s", id, prefix, ImageExt)
	}
	return SanitizeFilename(filename)
}

// PathFor returns the absolute path of a file within a managed subdirectory.
func (m *Manager) PathFor(subdir, filename string) string {
	return filepath.Join(m.root, subdir, filename)
}

// Exists reports whether a file is already present, enabling the idempotent
// skip: re-running the crawler never re-downloads.
func (m *Manager) Exists(subdir, filename string) bool {
	_, err := os.Stat(m.PathFor(subdir, filename))
	return err == nil
}

// Save streams the reader to disk in fixed-size chunks, writing through a
// temp file and renaming into place. A zero-byte result is deleted and
// reported as a failure.
func (m *Manager) Save(r io.Reader, subdir, filename string) (int64, error) {
	dir := filepath.Join(m.root, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	dest := filepath.Join(dir, filename)
	tempFile := dest + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	buf := make([]byte, saveChunkSize)
	written, err := io.CopyBuffer(out, r, buf)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to write image data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if written == 0 {
		os.Remove(tempFile)
		return 0, errs.New(errs.ErrorTypeValidation, "downloaded file is empty")
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return written, nil
}

// ScanImages lists png files directly under the managed subdirectories.
// A missing root is reported and yields an empty result, not an error.
func (m *Manager) ScanImages() ([]string, error) {
	if _, err := os.Stat(m.root); os.IsNotExist(err) {
		m.logger.WarnWithFields("image root does not exist", map[string]interface{}{
			"root": m.root,
		})
		return nil, nil
	}

	var files []string
	for _, subdir := range Subdirs {
		dir := filepath.Join(m.root, subdir)
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}

		count := 0
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ImageExt) {
				continue
			}
			files = append(files, filepath.Join(dir, entry.Name()))
			count++
		}

		m.logger.InfoWithFields("scanned image directory", map[string]interface{}{
			"subdir": subdir,
			"files":  count,
		})
	}

	m.logger.InfoWithFields("image scan complete", map[string]interface{}{
		"total": len(files),
	})

	return files, nil
}
