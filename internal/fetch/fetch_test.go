package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestEnsureLocalPlainAndFileScheme(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"plain path", "/tmp/doc.pdf", "/tmp/doc.pdf"},
		{"file scheme", "file:///tmp/doc.pdf", "/tmp/doc.pdf"},
		{"page fragment stripped", "/tmp/doc.pdf#3", "/tmp/doc.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, tmp, err := EnsureLocal(context.Background(), tt.ref)
			if err != nil {
				t.Fatalf("EnsureLocal: %v", err)
			}
			if local != tt.want {
				t.Fatalf("local = %q, want %q", local, tt.want)
			}
			if tmp != "" {
				t.Fatalf("tmp = %q, want empty for local source", tmp)
			}
		})
	}
}

func TestEnsureLocalHTTPDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	local, tmp, err := EnsureLocal(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("EnsureLocal: %v", err)
	}
	if tmp == "" || tmp != local {
		t.Fatalf("want temp download, got local=%q tmp=%q", local, tmp)
	}
	defer os.Remove(tmp)

	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "%PDF-1.4 fake" {
		t.Fatalf("downloaded content = %q", data)
	}
}

func TestEnsureLocalHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, _, err := EnsureLocal(context.Background(), srv.URL); err == nil {
		t.Fatal("want error for 404 response")
	}
}

func TestSplitS3URL(t *testing.T) {
	tests := []struct {
		url     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://bucket/some/key.pdf", "bucket", "some/key.pdf", false},
		{"s3://bucket", "", "", true},
		{"s3://bucket/", "", "", true},
		{"s3:///key", "", "", true},
	}

	for _, tt := range tests {
		bucket, key, err := SplitS3URL(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SplitS3URL(%q): want error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SplitS3URL(%q): %v", tt.url, err)
		}
		if bucket != tt.bucket || key != tt.key {
			t.Fatalf("SplitS3URL(%q) = %q, %q", tt.url, bucket, key)
		}
	}
}
