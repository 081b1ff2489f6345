package sniffer

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHeadJPEG(t *testing.T) {
	head := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	result, err := DetectHead(head)
	require.NoError(t, err)
	assert.Equal(t, TypeJPEG, result.Type)
	assert.Equal(t, "image/jpeg", result.MIME)
}

func TestDetectHeadPNG(t *testing.T) {
	head := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0x00}
	result, err := DetectHead(head)
	require.NoError(t, err)
	assert.Equal(t, TypePNG, result.Type)
	assert.Equal(t, "image/png", result.MIME)
}

func TestDetectHeadRejectsOtherFormats(t *testing.T) {
	cases := map[string][]byte{
		"gif":   []byte("GIF89a......"),
		"webp":  append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...),
		"text":  []byte("hello world"),
		"empty": nil,
	}
	for name, head := range cases {
		_, err := DetectHead(head)
		assert.ErrorIs(t, err, ErrUnknownType, name)
	}
}

func TestMimeTypeFromHTTP(t *testing.T) {
	header := http.Header{}
	assert.Equal(t, "", MimeTypeFromHTTP(header))

	header.Set("Content-Type", "image/png")
	assert.Equal(t, "image/png", MimeTypeFromHTTP(header))

	header.Set("Content-Type", "image/jpeg; charset=binary")
	assert.Equal(t, "image/jpeg", MimeTypeFromHTTP(header))
}
