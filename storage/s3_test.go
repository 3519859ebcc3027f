package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyLayout(t *testing.T) {
	at := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	key := ObjectKey("students", 12, "png", at)
	assert.True(t, strings.HasPrefix(key, "students/12/2026/03/04/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
}

func TestImageContentType(t *testing.T) {
	ct, ok := ImageContentType(FileExtension("Photo.JPG"))
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", ct)

	_, ok = ImageContentType(FileExtension("notes.pdf"))
	assert.False(t, ok)
}

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, "students/1/a.png", KeyFromURL("https://bucket.s3.ap-south-1.amazonaws.com/students/1/a.png"))
	assert.Equal(t, "", KeyFromURL("https://example.com/a.png"))
}
