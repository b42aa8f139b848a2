// Package githubrepo fetches repository metadata and file trees from the
// GitHub REST API. It is a thin collaborator of the analysis core: no
// interpretation happens here.
package githubrepo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultBaseURL = "https://api.github.com"

// DefaultMaxFiles caps how many tree entries a snapshot carries.
const DefaultMaxFiles = 2000

// Client talks to the GitHub REST v3 API. Responses are cached in-process
// (LRU) so repeated runs against the same repository stay cheap.
type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	maxFiles int
	cache    *lru.Cache[string, []byte]
}

// NewClient creates a GitHub client. token may be empty for anonymous access
// (lower rate limits). maxFiles <= 0 selects DefaultMaxFiles.
func NewClient(token string, maxFiles int) *Client {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	cache, _ := lru.New[string, []byte](256)
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  defaultBaseURL,
		token:    token,
		maxFiles: maxFiles,
		cache:    cache,
	}
}

// SetBaseURL points the client at a different API host (tests).
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

type repoResp struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	Stars         int    `json:"stargazers_count"`
	Forks         int    `json:"forks_count"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Repository fetches repository metadata.
func (c *Client) Repository(ctx context.Context, owner, repo string) (Metadata, error) {
	var out repoResp
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), &out); err != nil {
		return Metadata{}, fmt.Errorf("githubrepo: metadata %s/%s: %w", owner, repo, err)
	}
	return Metadata{
		Name:          out.Name,
		Owner:         out.Owner.Login,
		Description:   out.Description,
		Language:      out.Language,
		Stars:         out.Stars,
		Forks:         out.Forks,
		DefaultBranch: out.DefaultBranch,
	}, nil
}

type treeResp struct {
	Truncated bool `json:"truncated"`
	Tree      []struct {
		Path string `json:"path"`
		Type string `json:"type"` // "blob" or "tree"
		Size int    `json:"size"`
	} `json:"tree"`
}

// Tree lists every file in the repository recursively, capped at maxFiles.
func (c *Client) Tree(ctx context.Context, owner, repo, branch string) ([]File, bool, error) {
	var out treeResp
	url := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, branch)
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, false, fmt.Errorf("githubrepo: tree %s/%s@%s: %w", owner, repo, branch, err)
	}
	truncated := out.Truncated
	files := make([]File, 0, len(out.Tree))
	for _, e := range out.Tree {
		if e.Type != "blob" {
			continue
		}
		if len(files) >= c.maxFiles {
			truncated = true
			break
		}
		name := path.Base(e.Path)
		files = append(files, File{
			Path:      e.Path,
			Name:      name,
			Type:      "file",
			Size:      e.Size,
			Extension: strings.ToLower(path.Ext(name)),
		})
	}
	return files, truncated, nil
}

type contentResp struct {
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// FileContent fetches one file's decoded text content.
func (c *Client) FileContent(ctx context.Context, owner, repo, filePath string) (string, error) {
	var out contentResp
	url := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, filePath)
	if err := c.getJSON(ctx, url, &out); err != nil {
		return "", fmt.Errorf("githubrepo: content %s/%s %s: %w", owner, repo, filePath, err)
	}
	if out.Encoding != "base64" {
		return out.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("githubrepo: decode %s: %w", filePath, err)
	}
	return string(decoded), nil
}

// eagerFiles are fetched with content because the first analysis stage reads
// them for purpose detection.
var eagerFiles = map[string]bool{
	"readme.md":      true,
	"readme":         true,
	"package.json":   true,
	"go.mod":         true,
	"cargo.toml":     true,
	"pyproject.toml": true,
	"pom.xml":        true,
}

const eagerContentLimit = 64 * 1024

// Snapshot fetches metadata, the full tree, eager file contents, and the
// category breakdown for one repository.
func (c *Client) Snapshot(ctx context.Context, owner, repo string) (*Snapshot, error) {
	meta, err := c.Repository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	branch := meta.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	files, truncated, err := c.Tree(ctx, owner, repo, branch)
	if err != nil {
		return nil, err
	}
	for i := range files {
		f := &files[i]
		if !eagerFiles[strings.ToLower(f.Path)] || f.Size > eagerContentLimit {
			continue
		}
		content, err := c.FileContent(ctx, owner, repo, f.Path)
		if err != nil {
			// Eager content is an enrichment, not a requirement.
			continue
		}
		f.Content = content
	}
	return &Snapshot{
		Metadata:   meta,
		Files:      files,
		Truncated:  truncated,
		Categories: Categorize(files),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	full := c.baseURL + url
	if body, ok := c.cache.Get(full); ok {
		return json.Unmarshal(body, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		const max = 512
		if len(body) > max {
			body = body[:max]
		}
		return fmt.Errorf("unexpected status %s: %s", resp.Status, string(body))
	}
	c.cache.Add(full, body)
	return json.Unmarshal(body, v)
}
