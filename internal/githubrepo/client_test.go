package githubrepo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/demo", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"name":             "demo",
			"description":      "demo repository",
			"language":         "Go",
			"stargazers_count": 42,
			"forks_count":      7,
			"default_branch":   "main",
			"owner":            map[string]any{"login": "acme"},
		})
	})
	mux.HandleFunc("/repos/acme/demo/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"truncated": false,
			"tree": []map[string]any{
				{"path": "README.md", "type": "blob", "size": 10},
				{"path": "cmd", "type": "tree", "size": 0},
				{"path": "cmd/demo/main.go", "type": "blob", "size": 321},
				{"path": "internal/server.go", "type": "blob", "size": 1234},
			},
		})
	})
	mux.HandleFunc("/repos/acme/demo/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte("# demo\nA demo repo.")),
		})
	})
	return httptest.NewServer(mux)
}

func TestSnapshot(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c := NewClient("", 0)
	c.SetBaseURL(srv.URL)

	snap, err := c.Snapshot(context.Background(), "acme", "demo")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Metadata.Owner != "acme" || snap.Metadata.Stars != 42 {
		t.Fatalf("unexpected metadata: %+v", snap.Metadata)
	}
	if len(snap.Files) != 3 {
		t.Fatalf("expected 3 blobs, got %d", len(snap.Files))
	}
	var readme *File
	for i := range snap.Files {
		if snap.Files[i].Path == "README.md" {
			readme = &snap.Files[i]
		}
	}
	if readme == nil || readme.Content == "" {
		t.Fatal("README content should be fetched eagerly")
	}
	if snap.Categories.Counts[CategorySource] != 2 {
		t.Fatalf("category counts: %+v", snap.Categories.Counts)
	}
}

func TestGetJSON_Cached(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c := NewClient("", 0)
	c.SetBaseURL(srv.URL)

	ctx := context.Background()
	if _, err := c.Repository(ctx, "acme", "demo"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.Repository(ctx, "acme", "demo"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", got)
	}
}

func TestTree_MaxFilesCap(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c := NewClient("", 1)
	c.SetBaseURL(srv.URL)

	files, truncated, err := c.Tree(context.Background(), "acme", "demo", "main")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("cap not applied: %d files", len(files))
	}
	if !truncated {
		t.Fatal("expected truncated flag when cap hit")
	}
}

func TestRepository_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("", 0)
	c.SetBaseURL(srv.URL)

	if _, err := c.Repository(context.Background(), "acme", "missing"); err == nil {
		t.Fatal("expected error for 404")
	}
}
