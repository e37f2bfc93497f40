package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoaderSources(t *testing.T) {
	ctx := context.Background()
	files := fstest.MapFS{"specs/api.yaml": {Data: []byte("openapi: 3.0.3")}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("openapi: 3.1.0"))
	}))
	defer server.Close()

	loader := NewLoader(WithFileSystem(files), WithHTTPClient(server.Client()), WithHTTPFallback(time.Second))

	got, err := loader.Load(ctx, SourceFromFS("specs/api.yaml"))
	if err != nil {
		t.Fatalf("fs load: %v", err)
	}
	if diff := cmp.Diff("openapi: 3.0.3", string(got)); diff != "" {
		t.Fatalf("fs payload (-want +got):\n%s", diff)
	}

	remote, err := SourceFromURL(server.URL + "/api.yaml")
	if err != nil {
		t.Fatalf("url source: %v", err)
	}
	got, err = loader.Load(ctx, remote)
	if err != nil {
		t.Fatalf("http load: %v", err)
	}
	if string(got) != "openapi: 3.1.0" {
		t.Fatalf("http payload = %q", got)
	}

	missing, _ := SourceFromURL(server.URL + "/missing.yaml")
	if _, err := loader.Load(ctx, missing); err == nil {
		t.Fatalf("expected status error")
	}

	file, err := loader.Load(ctx, SourceFromFile(filepath.Join("testdata", "enrollment.yaml")))
	if err != nil || len(file) == 0 {
		t.Fatalf("file load: %v", err)
	}
}

func TestLoaderRejectsDisabledSources(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader()

	remote, err := SourceFromURL("https://example.com/api.yaml")
	if err != nil {
		t.Fatalf("url source: %v", err)
	}
	if _, err := loader.Load(ctx, remote); err == nil {
		t.Fatalf("expected http to be disabled")
	}
	if _, err := loader.Load(ctx, SourceFromFS("api.yaml")); err == nil {
		t.Fatalf("expected missing filesystem error")
	}
	if _, err := loader.Load(ctx, Source{Kind: "ftp"}); err == nil {
		t.Fatalf("expected unsupported kind error")
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		arg     string
		want    Source
		wantErr bool
	}{
		{arg: "https://example.com/openapi.yaml", want: Source{Kind: SourceKindURL, Location: "https://example.com/openapi.yaml"}},
		{arg: "./specs/../openapi.yaml", want: Source{Kind: SourceKindFile, Location: "openapi.yaml"}},
		{arg: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSource(tt.arg)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseSource(%q) expected error", tt.arg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseSource(%q): %v", tt.arg, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("ParseSource(%q) (-want +got):\n%s", tt.arg, diff)
		}
	}
	if _, err := SourceFromURL("ftp://example.com/x"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
