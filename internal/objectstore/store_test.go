package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeGetter struct {
	objects map[string]string
	bucket  string
	key     string
}

func (f *fakeGetter) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)

	body, ok := f.objects[f.bucket+"/"+f.key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		ref        string
		defBucket  string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{ref: "s3://resumes/u1/cv.pdf", wantBucket: "resumes", wantKey: "u1/cv.pdf"},
		{ref: " s3://resumes/cv.txt ", wantBucket: "resumes", wantKey: "cv.txt"},
		{ref: "s3:///cv.txt", defBucket: "fallback", wantBucket: "fallback", wantKey: "cv.txt"},
		{ref: "s3:///cv.txt", wantErr: true},
		{ref: "s3://resumes", wantErr: true},
		{ref: "/tmp/cv.txt", wantErr: true},
	}

	for _, tt := range tests {
		bucket, key, err := ParseURI(tt.ref, tt.defBucket)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseURI(%q): expected error", tt.ref)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseURI(%q): unexpected error: %v", tt.ref, err)
		}
		if bucket != tt.wantBucket || key != tt.wantKey {
			t.Fatalf("ParseURI(%q) = %q, %q; want %q, %q", tt.ref, bucket, key, tt.wantBucket, tt.wantKey)
		}
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("s3://bucket/key") {
		t.Fatal("expected s3 reference to be remote")
	}
	if IsRemote("resume.pdf") {
		t.Fatal("expected local path not to be remote")
	}
}

func TestFetchKeepsExtension(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{"resumes/users/7/cv.txt": "Hello"}}
	store := newStore(getter, "resumes", nil)

	path, cleanup, err := store.Fetch(context.Background(), "s3:///users/7/cv.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Ext(path) != ".txt" {
		t.Fatalf("expected .txt extension, got %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if string(data) != "Hello" {
		t.Fatalf("unexpected content: %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected cleanup to remove %s, got %v", path, err)
	}
}

func TestFetchMissingObject(t *testing.T) {
	store := newStore(&fakeGetter{}, "", nil)

	if _, _, err := store.Fetch(context.Background(), "s3://resumes/missing.pdf"); err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestNilStore(t *testing.T) {
	var store *Store

	if _, _, err := store.Fetch(context.Background(), "s3://b/k"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
