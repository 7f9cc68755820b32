package fileserver

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func pngBytes(size int) []byte {
	b := make([]byte, size)
	copy(b, pngHeader)
	for i := len(pngHeader); i < size; i++ {
		b[i] = byte(i)
	}
	return b
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	s := New(t.TempDir(), 1<<20)
	data := pngBytes(4096)

	url, err := s.Save(context.Background(), "me.PNG", bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, URLPrefix))
	assert.True(t, strings.HasSuffix(url, ".png"))

	rc, ct, err := s.Open(strings.TrimPrefix(url, URLPrefix))
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", ct)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSaveRejects(t *testing.T) {
	s := New(t.TempDir(), 1024)
	ctx := context.Background()

	_, err := s.Save(ctx, "doc.pdf", strings.NewReader("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = s.Save(ctx, "fake.jpg", bytes.NewReader(pngBytes(64)))
	assert.ErrorIs(t, err, ErrMismatch)

	_, err = s.Save(ctx, "big.png", bytes.NewReader(pngBytes(2048)))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSaveAcceptsExactLimit(t *testing.T) {
	s := New(t.TempDir(), 1024)
	_, err := s.Save(context.Background(), "ok.png", bytes.NewReader(pngBytes(1024)))
	assert.NoError(t, err)
}

func TestOpenRejectsForeignNames(t *testing.T) {
	s := New(t.TempDir(), 1024)
	for _, name := range []string{"../../etc/passwd", "x.png", "00000000-0000-0000-0000-000000000000.png"} {
		_, _, err := s.Open(name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}
