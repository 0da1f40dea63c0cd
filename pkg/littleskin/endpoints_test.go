package littleskin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextureInfoURL(t *testing.T) {
	assert.Equal(t, "https://littleskin.cn/texture/42",
		TextureInfoURL("https://littleskin.cn", 42))

	// Trailing slashes are trimmed.
	assert.Equal(t, "https://skins.example.com/texture/1",
		TextureInfoURL("https://skins.example.com/", 1))

	// Empty base falls back to the default.
	assert.Equal(t, DefaultBaseURL+"/texture/7", TextureInfoURL("", 7))
}

func TestTextureDownloadURL(t *testing.T) {
	assert.Equal(t, "https://littleskin.cn/textures/abc123",
		TextureDownloadURL("https://littleskin.cn", "abc123"))
}

func TestTextureInfoTypeOrUnknown(t *testing.T) {
	info := &TextureInfo{Hash: "h"}
	assert.Equal(t, "unknown", info.TypeOrUnknown())

	info.Type = TypeAlex
	assert.Equal(t, "alex", info.TypeOrUnknown())
}

func TestTypeClassification(t *testing.T) {
	assert.True(t, IsSkin(TypeSteve))
	assert.True(t, IsSkin(TypeAlex))
	assert.False(t, IsSkin(TypeCape))
	assert.False(t, IsSkin(""))

	assert.True(t, IsCape(TypeCape))
	assert.False(t, IsCape(TypeSteve))
}
