package media_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/media"
)

const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChAI9jU77zgAAAABJRU5ErkJggg=="

func TestDataURL_Upload(t *testing.T) {
	up, err := media.New("", "ember")
	require.NoError(t, err)

	r, err := media.DecodeBase64(pixelPNG)
	require.NoError(t, err)

	url, err := up.Upload(context.Background(), r, "photos", "user_1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestDecodeBase64_AcceptsDataURL(t *testing.T) {
	r, err := media.DecodeBase64("data:image/png;base64," + pixelPNG)
	require.NoError(t, err)
	b, _ := io.ReadAll(r)
	assert.Equal(t, "\x89PNG", string(b[:4]))

	_, err = media.DecodeBase64("%%%")
	assert.Error(t, err)
}

func TestUpload_RejectsNonImage(t *testing.T) {
	_, err := media.DataURL{}.Upload(context.Background(), strings.NewReader("just text"), "photos", "user_1")
	assert.ErrorIs(t, err, media.ErrNotImage)
}

func TestUpload_RejectsOversized(t *testing.T) {
	big := strings.NewReader(strings.Repeat("a", media.MaxUploadBytes+10))
	_, err := media.DataURL{}.Upload(context.Background(), big, "photos", "user_1")
	assert.ErrorIs(t, err, media.ErrTooLarge)
}
