package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// DefaultBaseURL keeps documents in process memory.
const DefaultBaseURL = "mem://localhost/mcpchat"

// NotFoundError reports a missing document.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// documents reads and writes JSON documents below a base URL.
type documents struct {
	fs      afs.Service
	baseURL string
}

func (d *documents) url(folder, id string) string {
	return url.Join(d.baseURL, folder, id+".json")
}

func (d *documents) put(ctx context.Context, folder, id string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	if err = d.fs.Upload(ctx, d.url(folder, id), 0o644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", folder, id, err)
	}
	return nil
}

func (d *documents) get(ctx context.Context, folder, id string, value any) error {
	URL := d.url(folder, id)
	ok, err := d.fs.Exists(ctx, URL)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Kind: strings.TrimSuffix(folder, "s"), ID: id}
	}
	data, err := d.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to load %s/%s: %w", folder, id, err)
	}
	return json.Unmarshal(data, value)
}

func (d *documents) delete(ctx context.Context, folder, id string) (bool, error) {
	URL := d.url(folder, id)
	ok, err := d.fs.Exists(ctx, URL)
	if err != nil || !ok {
		return false, err
	}
	return true, d.fs.Delete(ctx, URL)
}

// list loads every document of folder.
func (d *documents) list(ctx context.Context, folder string) ([][]byte, error) {
	URL := url.Join(d.baseURL, folder)
	ok, err := d.fs.Exists(ctx, URL)
	if err != nil || !ok {
		return nil, err
	}
	objects, err := d.fs.List(ctx, URL)
	if err != nil {
		return nil, err
	}
	var ret [][]byte
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := d.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		ret = append(ret, data)
	}
	return ret, nil
}

func newDocuments(baseURL string) *documents {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &documents{fs: afs.New(), baseURL: baseURL}
}
