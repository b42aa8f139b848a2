package githubrepo

// Metadata is the repository-level information the analysis consumes.
type Metadata struct {
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	Stars         int    `json:"stars"`
	Forks         int    `json:"forks"`
	DefaultBranch string `json:"default_branch"`
}

// File is one entry of the repository tree. Content is populated only for
// the handful of files fetched eagerly (README, manifests).
type File struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Type      string `json:"type"` // "file" or "dir"
	Size      int    `json:"size"`
	Extension string `json:"extension"`
	Content   string `json:"content,omitempty"`
}

// Snapshot bundles everything fetched for one repository.
type Snapshot struct {
	Metadata   Metadata   `json:"metadata"`
	Files      []File     `json:"files"`
	Truncated  bool       `json:"truncated"`
	Categories Categories `json:"categories"`
}

// Categories is the grouping produced by Categorize.
type Categories struct {
	Counts map[string]int      `json:"counts"`
	Files  map[string][]string `json:"files"`
}
