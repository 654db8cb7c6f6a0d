package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/querydesk/querydesk/internal/storage"
)

type fakeClient struct {
	objects map[string][]byte
	lastKey string
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string][]byte{}}
}

func (f *fakeClient) Put(_ context.Context, _, key string, reader io.Reader, _ int64, _ string) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.objects[key] = data
	f.lastKey = key
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeClient) Get(_ context.Context, _, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeClient) Stat(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeClient) BucketExists(context.Context, string) (bool, error) {
	return true, nil
}

func (f *fakeClient) CreateBucket(context.Context, string, string) error {
	return nil
}

func TestStorePrefixesKeys(t *testing.T) {
	client := newFakeClient()
	store, err := NewWithClient("querydesk", "results", client)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	payload := []byte("parquet bytes")
	if _, err := store.Put(context.Background(), "2026/08/31/a.parquet", bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if client.lastKey != "results/2026/08/31/a.parquet" {
		t.Fatalf("stored key = %q", client.lastKey)
	}

	reader, err := store.Get(context.Background(), "2026/08/31/a.parquet")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(data) != "parquet bytes" {
		t.Fatalf("object body = %q", data)
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	store, err := NewWithClient("querydesk", "", newFakeClient())
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	for _, key := range []string{"", "   ", "../escape", "a/../../b"} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), 1, storage.PutOptions{}); err == nil {
			t.Errorf("Put(%q) should fail", key)
		}
	}
}

func TestStoreGetMissingObject(t *testing.T) {
	store, err := NewWithClient("querydesk", "results", newFakeClient())
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "missing.parquet"); err != storage.ErrObjectNotFound {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
}
