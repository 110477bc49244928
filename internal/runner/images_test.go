package runner

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataURLBase64BitExact(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xFF, 0x10, 0x20, 0x7E}
	encoded := base64.StdEncoding.EncodeToString(raw)
	ref := "data:image/png;base64," + encoded

	got, mime, err := decodeDataURL(ref)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, got)
}

func TestDecodeDataURLRejectsMalformed(t *testing.T) {
	_, _, err := decodeDataURL("data:image/png;base64")
	assert.Error(t, err)
}

func TestFetchRejectsUnsupportedScheme(t *testing.T) {
	f := NewImageFetcher()
	_, _, err := f.Fetch("ftp://example.com/x.png")
	assert.Error(t, err)
}

func TestMimeFromExt(t *testing.T) {
	assert.Equal(t, "image/png", mimeFromExt("/tmp/a.png"))
	assert.Equal(t, "image/jpeg", mimeFromExt("/tmp/a.jpg"))
	assert.Equal(t, "application/octet-stream", mimeFromExt("/tmp/a.unknown"))
}
