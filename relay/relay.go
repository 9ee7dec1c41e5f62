// Package relay moves embedded base64 images out of tool results into a blob store,
// substituting retrievable URLs.
package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	dataImagePrefix = "data:image/"
	// Omitted replaces base64 image data that is not shown to the end user.
	Omitted = "[image omitted]"
)

var (
	dataURI         = regexp.MustCompile(`(?s)^data:(image/[\w.+-]+);base64,(.+)$`)
	embeddedDataURI = regexp.MustCompile(`data:image/[\w.+-]+;base64,[A-Za-z0-9+/=]+`)
	unsafeSegment   = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
)

// Uploader persists bytes at a path and returns a public URL; repeated uploads to a path overwrite.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType, path string) (string, error)
}

// Result is a relayed tool result.
type Result struct {
	// Display is the result with uploaded images replaced by URLs.
	Display any `json:"display"`
	// ImageURL is the first uploaded image URL in traversal order.
	ImageURL string `json:"imageUrl,omitempty"`
	// ImageURLs lists all uploaded image URLs in traversal order.
	ImageURLs []string `json:"imageUrls,omitempty"`
	// Failures lists fragments that could not be uploaded.
	Failures []*UploadError `json:"-"`
}

// Relay extracts images from tool results.
type Relay struct {
	uploader Uploader
	logger   *slog.Logger
}

// Relay uploads every embedded image of raw under sessionID/callID and returns the display result.
// A failed fragment upload is logged and skipped.
func (r *Relay) Relay(ctx context.Context, raw any, sessionID, callID string) (*Result, error) {
	value, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	w := &walker{ctx: ctx, relay: r, prefix: segment(sessionID) + "/" + segment(callID)}
	display := w.visit(value, "")
	ret := &Result{Display: display, ImageURLs: w.urls, Failures: w.failures}
	if len(w.urls) > 0 {
		ret.ImageURL = w.urls[0]
		ret.Display = strip(display)
	}
	return ret, nil
}

type walker struct {
	ctx      context.Context
	relay    *Relay
	prefix   string
	urls     []string
	failures []*UploadError
}

func (w *walker) visit(value any, suffix string) any {
	switch actual := value.(type) {
	case map[string]any:
		return w.visitMap(actual, suffix)
	case []any:
		ret := make([]any, len(actual))
		for i, item := range actual {
			ret[i] = w.visit(item, suffix+"-"+strconv.Itoa(i))
		}
		return ret
	case string:
		if !strings.HasPrefix(actual, dataImagePrefix) {
			return actual
		}
		mimeType, data, err := decodeDataURI(actual)
		if URL, ok := w.upload(mimeType, data, err, suffix); ok {
			return URL
		}
		return actual
	}
	return value
}

func (w *walker) visitMap(item map[string]any, suffix string) any {
	kind, _ := item["type"].(string)
	switch kind {
	case "image":
		data, hasData := item["data"].(string)
		mimeType, hasMime := item["mimeType"].(string)
		if hasData && hasMime {
			decoded, err := decodeBase64(data)
			ret := copyMap(item)
			if URL, ok := w.upload(mimeType, decoded, err, suffix); ok {
				delete(ret, "data")
				ret["url"] = URL
			}
			return ret
		}
	case "text":
		if text, ok := item["text"].(string); ok && strings.HasPrefix(text, dataImagePrefix) {
			ret := copyMap(item)
			mimeType, decoded, err := decodeDataURI(text)
			if URL, ok := w.upload(mimeType, decoded, err, suffix); ok {
				ret["text"] = URL
			}
			return ret
		}
	}
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ret := make(map[string]any, len(item))
	for _, k := range keys {
		ret[k] = w.visit(item[k], suffix+"-"+k)
	}
	return ret
}

func (w *walker) upload(mimeType string, data []byte, decodeErr error, suffix string) (string, bool) {
	objectPath := w.prefix + segment(suffix) + "." + extension(mimeType)
	err := decodeErr
	var URL string
	if err == nil {
		URL, err = w.relay.uploader.Upload(w.ctx, data, mimeType, objectPath)
	}
	if err != nil {
		uploadErr := &UploadError{Path: objectPath, Err: err}
		w.failures = append(w.failures, uploadErr)
		w.relay.logger.Warn("failed to relay tool result image", "path", objectPath, "error", err)
		return "", false
	}
	w.urls = append(w.urls, URL)
	return URL, true
}

// strip removes base64 image data left behind by failed uploads.
func strip(value any) any {
	switch actual := value.(type) {
	case map[string]any:
		if kind, _ := actual["type"].(string); kind == "image" {
			if _, ok := actual["data"].(string); ok {
				ret := copyMap(actual)
				delete(ret, "data")
				ret["text"] = Omitted
				return ret
			}
		}
		ret := make(map[string]any, len(actual))
		for k, v := range actual {
			ret[k] = strip(v)
		}
		return ret
	case []any:
		ret := make([]any, len(actual))
		for i, item := range actual {
			ret[i] = strip(item)
		}
		return ret
	case string:
		if strings.Contains(actual, dataImagePrefix) {
			return embeddedDataURI.ReplaceAllString(actual, Omitted)
		}
	}
	return value
}

func normalize(raw any) (any, error) {
	switch raw.(type) {
	case nil, string, bool, float64, map[string]any, []any:
		return raw, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	var ret any
	if err = json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("failed to decode tool result: %w", err)
	}
	return ret, nil
}

func decodeDataURI(value string) (string, []byte, error) {
	matches := dataURI.FindStringSubmatch(value)
	if len(matches) != 3 {
		return "image/png", nil, fmt.Errorf("invalid image data URI")
	}
	data, err := decodeBase64(matches[2])
	return matches[1], data, err
}

func decodeBase64(data string) ([]byte, error) {
	data = strings.Join(strings.Fields(data), "")
	if ret, err := base64.StdEncoding.DecodeString(data); err == nil {
		return ret, nil
	}
	ret, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image data: %w", err)
	}
	return ret, nil
}

func extension(mimeType string) string {
	subtype := strings.ToLower(strings.TrimPrefix(mimeType, "image/"))
	if i := strings.IndexAny(subtype, "+;"); i != -1 {
		subtype = subtype[:i]
	}
	switch subtype {
	case "jpeg", "pjpeg":
		return "jpg"
	case "":
		return "png"
	}
	return segment(subtype)
}

func segment(value string) string {
	return unsafeSegment.ReplaceAllString(value, "_")
}

func copyMap(m map[string]any) map[string]any {
	ret := make(map[string]any, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}

// New creates a relay
func New(uploader Uploader, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{uploader: uploader, logger: logger}
}
