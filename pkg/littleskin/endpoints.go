package littleskin

import (
	"fmt"
	"strings"
)

const (
	// DefaultBaseURL is the base URL of the texture service.
	DefaultBaseURL = "https://littleskin.cn"

	// TextureInfoPath is the endpoint pattern for texture metadata lookups.
	TextureInfoPath = "/texture/%d"

	// TextureDownloadPath is the endpoint pattern for raw texture downloads.
	TextureDownloadPath = "/textures/%s"
)

// TextureInfoURL constructs the metadata lookup URL for a texture ID.
func TextureInfoURL(base string, id int) string {
	return normalizeBase(base) + fmt.Sprintf(TextureInfoPath, id)
}

// TextureDownloadURL constructs the raw image download URL for a texture hash.
func TextureDownloadURL(base, hash string) string {
	return normalizeBase(base) + fmt.Sprintf(TextureDownloadPath, hash)
}

func normalizeBase(base string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}
