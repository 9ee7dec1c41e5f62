package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mcpchat/blob"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	order   []string
	fail    func(path string) bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte, contentType, path string) (string, error) {
	if f.fail != nil && f.fail(path) {
		return "", errors.New("storage unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = data
	f.types[path] = contentType
	f.order = append(f.order, path)
	return "https://cdn.test/" + path, nil
}

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	pngBase64 = base64.StdEncoding.EncodeToString(pngBytes)
)

func encode(t *testing.T, v any) string {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestRelay_ImageItem(t *testing.T) {
	uploader := newFakeUploader()
	raw := map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": "here is your chart"},
			map[string]any{"type": "image", "data": pngBase64, "mimeType": "image/png"},
		},
	}
	result, err := New(uploader, nil).Relay(context.Background(), raw, "session-1", "call-1")
	require.NoError(t, err)

	require.Len(t, uploader.objects, 1)
	assert.Equal(t, pngBytes, uploader.objects["session-1/call-1-content-1.png"])
	assert.Equal(t, "image/png", uploader.types["session-1/call-1-content-1.png"])
	assert.Equal(t, "https://cdn.test/session-1/call-1-content-1.png", result.ImageURL)
	display := encode(t, result.Display)
	assert.NotContains(t, display, pngBase64)
	assert.Contains(t, display, "here is your chart")
	assert.Contains(t, display, result.ImageURL)
}

func TestRelay_TextAndBareStrings(t *testing.T) {
	uploader := newFakeUploader()
	jpeg := "data:image/jpeg;base64," + pngBase64
	raw := map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": jpeg},
		},
		"structuredContent": map[string]any{
			"thumbnails": []any{"plain", "data:image/gif;base64," + pngBase64},
		},
	}
	result, err := New(uploader, nil).Relay(context.Background(), raw, "s", "c")
	require.NoError(t, err)

	assert.Equal(t, []string{"s/c-content-0.jpg", "s/c-structuredContent-thumbnails-1.gif"}, uploader.order)
	assert.Equal(t, "https://cdn.test/s/c-content-0.jpg", result.ImageURL)
	assert.Len(t, result.ImageURLs, 2)
	assert.NotContains(t, encode(t, result.Display), pngBase64)
}

func TestRelay_UploadFailure(t *testing.T) {
	uploader := newFakeUploader()
	uploader.fail = func(path string) bool { return strings.HasSuffix(path, "-0.png") }
	raw := map[string]any{
		"content": []any{
			map[string]any{"type": "image", "data": pngBase64, "mimeType": "image/png"},
			map[string]any{"type": "image", "data": pngBase64, "mimeType": "image/png"},
			map[string]any{"type": "text", "text": "caption data:image/png;base64," + pngBase64 + " end"},
		},
	}
	result, err := New(uploader, nil).Relay(context.Background(), raw, "s", "c")
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "s/c-content-0.png", result.Failures[0].Path)
	assert.Equal(t, "https://cdn.test/s/c-content-1.png", result.ImageURL)

	display := encode(t, result.Display)
	assert.NotContains(t, display, pngBase64)
	assert.Contains(t, display, Omitted)
	assert.Contains(t, display, "caption")
}

func TestRelay_NoImages(t *testing.T) {
	uploader := newFakeUploader()
	raw := map[string]any{"content": []any{map[string]any{"type": "text", "text": "42"}}, "isError": false}
	result, err := New(uploader, nil).Relay(context.Background(), raw, "s", "c")
	require.NoError(t, err)
	assert.Empty(t, result.ImageURL)
	assert.Empty(t, uploader.objects)
	assert.Equal(t, raw, result.Display)
}

func TestRelay_AllUploadsFail(t *testing.T) {
	uploader := newFakeUploader()
	uploader.fail = func(string) bool { return true }
	raw := []any{"data:image/png;base64," + pngBase64}
	result, err := New(uploader, nil).Relay(context.Background(), raw, "s", "c")
	require.NoError(t, err)
	assert.Empty(t, result.ImageURL)
	require.Len(t, result.Failures, 1)
	var uploadErr *UploadError
	assert.True(t, errors.As(result.Failures[0], &uploadErr))
}

func TestRelay_InvalidBase64(t *testing.T) {
	uploader := newFakeUploader()
	raw := map[string]any{"type": "image", "data": "!!!not base64", "mimeType": "image/png"}
	result, err := New(uploader, nil).Relay(context.Background(), raw, "s", "c")
	require.NoError(t, err)
	assert.Len(t, result.Failures, 1)
	assert.Empty(t, uploader.objects)
}

func TestRelay_StructInput(t *testing.T) {
	type item struct {
		Type     string `json:"type"`
		Data     string `json:"data"`
		MimeType string `json:"mimeType"`
	}
	raw := struct {
		Content []item `json:"content"`
	}{Content: []item{{Type: "image", Data: pngBase64, MimeType: "image/webp"}}}
	uploader := newFakeUploader()
	result, err := New(uploader, nil).Relay(context.Background(), raw, "s", "c")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/s/c-content-0.webp", result.ImageURL)
}

func TestRelay_IdempotentOverwrite(t *testing.T) {
	ctx := context.Background()
	store := blob.New("mem://localhost/relay-test-idempotent", "http://localhost:8080/images")
	relay := New(store, nil)
	first := map[string]any{"type": "image", "data": base64.StdEncoding.EncodeToString([]byte("v1")), "mimeType": "image/png"}
	second := map[string]any{"type": "image", "data": base64.StdEncoding.EncodeToString([]byte("v2")), "mimeType": "image/png"}

	r1, err := relay.Relay(ctx, first, "s", "c")
	require.NoError(t, err)
	r2, err := relay.Relay(ctx, second, "s", "c")
	require.NoError(t, err)
	assert.Equal(t, r1.ImageURL, r2.ImageURL)

	data, err := store.Download(ctx, "s/c.png")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpg", extension("image/jpeg"))
	assert.Equal(t, "svg", extension("image/svg+xml"))
	assert.Equal(t, "png", extension(""))
}
