package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Bucket is a blob store rooted at a directory. Object paths use forward
// slashes and are always relative to the bucket.
type Bucket struct {
	name       string
	root       string
	publicBase string
}

func NewBucket(dir, name, publicBase string) *Bucket {
	return &Bucket{
		name:       name,
		root:       filepath.Join(dir, name),
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

func (b *Bucket) Name() string { return b.name }

// List returns object paths directly under prefix, sorted.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	dir, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, wrap("list objects", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, path.Join(prefix, e.Name()))
	}
	sort.Strings(out)
	return out, ctx.Err()
}

// Remove deletes the given objects. Missing objects are ignored.
func (b *Bucket) Remove(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		full, err := b.resolve(p)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return wrap("remove object", err)
		}
	}
	return nil
}

// Upload writes the object atomically via a temp file.
func (b *Bucket) Upload(ctx context.Context, objectPath string, r io.Reader) error {
	full, err := b.resolve(objectPath)
	if err != nil {
		return err
	}
	if full == b.root {
		return invalid("upload object", "object path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return wrap("upload object", err)
	}

	tmp := filepath.Join(filepath.Dir(full), "."+uuid.NewString()+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return wrap("upload object", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return wrap("upload object", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return wrap("upload object", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return wrap("upload object", err)
	}
	return nil
}

// PublicURL returns the address the object is served from.
func (b *Bucket) PublicURL(objectPath string) string {
	escaped := make([]string, 0)
	for _, part := range strings.Split(strings.Trim(objectPath, "/"), "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return b.publicBase + b.PublicPath() + strings.Join(escaped, "/")
}

// PublicPath is the URL path prefix PublicURL builds on.
func (b *Bucket) PublicPath() string {
	return "/storage/v1/object/public/" + b.name + "/"
}

// Handler serves the bucket's objects read-only under PublicPath.
func (b *Bucket) Handler() http.Handler {
	return http.StripPrefix(b.PublicPath(), http.FileServer(http.Dir(b.root)))
}

func (b *Bucket) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(objectPath))
	if strings.Contains(objectPath, "..") {
		return "", invalid("resolve object", fmt.Sprintf("invalid object path %q", objectPath))
	}
	return filepath.Join(b.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
