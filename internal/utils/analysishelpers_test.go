package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Hello World", ExtractTitle([]byte("<html><head><TITLE>\n Hello\n  World </TITLE></head></html>")))
	assert.Equal(t, "first", ExtractTitle([]byte("<title>first</title><title>second</title>")))
	assert.Empty(t, ExtractTitle([]byte(`{"json":true}`)))
	assert.Empty(t, ExtractTitle(nil))
}

func TestBodyDigest(t *testing.T) {
	a := BodyDigest([]byte("a"))
	assert.Len(t, a, 16)
	assert.Equal(t, a, BodyDigest([]byte("a")))
	assert.NotEqual(t, a, BodyDigest([]byte("b")))
}
