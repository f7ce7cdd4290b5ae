package variants

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"photo-gallery/internal/filesystem"
	"photo-gallery/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Blob is the content behind a handle.
type Blob struct {
	Data        []byte
	ContentType string
}

// ETag returns a strong entity tag for the blob content.
func (b Blob) ETag() string {
	sum := blake2b.Sum256(b.Data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// BlobStore owns the bytes behind revocable "blob:" refs.
type BlobStore interface {
	// Create stores data and returns a new handle owned by the caller.
	Create(data []byte, contentType string) (Ref, error)
	// Open returns the content of a live handle, or ErrNotFound.
	Open(ref Ref) (Blob, error)
	// Revoke releases a handle. Revoking an unknown handle returns ErrNotFound.
	Revoke(ref Ref) error
	// Exists is a cheap liveness probe.
	Exists(ref Ref) bool
}

const (
	memoryPrefix = blobScheme + "mem/"
	diskPrefix   = blobScheme + "disk/"
	uploadPrefix = blobScheme + "upload/"
)

// MemoryBlobStore keeps blobs in process memory. Its handles do not survive
// a restart.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewMemoryBlobStore returns an empty in-memory store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]Blob)}
}

func (m *MemoryBlobStore) Create(data []byte, contentType string) (Ref, error) {
	id := uuid.NewString()
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.blobs[id] = Blob{Data: buf, ContentType: contentType}
	m.mu.Unlock()

	return Ref(memoryPrefix + id), nil
}

func (m *MemoryBlobStore) Open(ref Ref) (Blob, error) {
	id, ok := strings.CutPrefix(string(ref), memoryPrefix)
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[id]
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return b, nil
}

func (m *MemoryBlobStore) Revoke(ref Ref) error {
	id, ok := strings.CutPrefix(string(ref), memoryPrefix)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	delete(m.blobs, id)
	return nil
}

func (m *MemoryBlobStore) Exists(ref Ref) bool {
	_, err := m.Open(ref)
	return err == nil
}

// Len returns the number of live handles.
func (m *MemoryBlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DiskBlobStore keeps each blob in its own file under a directory, so handles
// outlive the process and can be restored from a cache snapshot.
type DiskBlobStore struct {
	dir    string
	prefix string
	retry  filesystem.RetryConfig
}

// NewDiskBlobStore creates dir if needed and returns a store rooted there.
func NewDiskBlobStore(dir string) (*DiskBlobStore, error) {
	return newDiskBlobStore(dir, diskPrefix)
}

// NewUploadStore returns the durable store for ingested upload sources. Its
// "blob:upload/" handles are written into albums, so they must outlive the
// process whatever store holds the variants.
func NewUploadStore(dir string) (*DiskBlobStore, error) {
	return newDiskBlobStore(dir, uploadPrefix)
}

func newDiskBlobStore(dir, prefix string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
	}
	return &DiskBlobStore{dir: dir, prefix: prefix, retry: filesystem.DefaultRetryConfig()}, nil
}

func (d *DiskBlobStore) Create(data []byte, contentType string) (Ref, error) {
	ext, ok := extByContentType[contentType]
	if !ok {
		ext = ".bin"
	}
	name := uuid.NewString() + ext

	tmp, err := os.CreateTemp(d.dir, ".blob-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp blob: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(d.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to commit blob: %w", err)
	}

	return Ref(d.prefix + name), nil
}

// path maps a handle to its file, rejecting anything that is not a name this
// store could have produced.
func (d *DiskBlobStore) path(ref Ref) (string, bool) {
	name, ok := strings.CutPrefix(string(ref), d.prefix)
	if !ok {
		return "", false
	}
	ext := filepath.Ext(name)
	if _, err := uuid.Parse(strings.TrimSuffix(name, ext)); err != nil {
		return "", false
	}
	return filepath.Join(d.dir, name), true
}

func (d *DiskBlobStore) Open(ref Ref) (Blob, error) {
	p, ok := d.path(ref)
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	f, err := filesystem.OpenWithRetry(p, d.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return Blob{}, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close blob %s: %v", p, err)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to read blob %s: %w", ref, err)
	}

	contentType := "application/octet-stream"
	for ct, ext := range extByContentType {
		if ext == filepath.Ext(p) {
			contentType = ct
			break
		}
	}
	return Blob{Data: data, ContentType: contentType}, nil
}

func (d *DiskBlobStore) Revoke(ref Ref) error {
	p, ok := d.path(ref)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err := filesystem.RemoveWithRetry(p, d.retry); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return err
	}
	return nil
}

func (d *DiskBlobStore) Exists(ref Ref) bool {
	p, ok := d.path(ref)
	if !ok {
		return false
	}
	_, err := filesystem.StatWithRetry(p, d.retry)
	return err == nil
}
