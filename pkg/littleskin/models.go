package littleskin

// Skin type values as reported by the texture service.
const (
	TypeSteve = "steve"
	TypeAlex  = "alex"
	TypeCape  = "cape"
)

// TextureInfo is the metadata record returned for a texture ID. Hash is the
// content identifier used to fetch the image bytes; Name and Type may be
// empty or unknown.
type TextureInfo struct {
	Hash string `json:"hash"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// TypeOrUnknown returns the texture type, or "unknown" when the service
// did not report one.
func (t *TextureInfo) TypeOrUnknown() string {
	if t.Type == "" {
		return "unknown"
	}
	return t.Type
}

// IsSkin reports whether the type is a player skin (classic or slim model).
func IsSkin(textureType string) bool {
	return textureType == TypeSteve || textureType == TypeAlex
}

// IsCape reports whether the type is a cape.
func IsCape(textureType string) bool {
	return textureType == TypeCape
}
