package githubrepo

import (
	"sort"
	"strings"
)

// File categories. Every file gets exactly one.
const (
	CategorySource        = "source"
	CategoryConfig        = "config"
	CategoryDocumentation = "documentation"
	CategoryTest          = "test"
	CategoryBuild         = "build"
	CategoryDependency    = "dependency"
	CategoryAsset         = "asset"
	CategoryOther         = "other"
)

var sourceExts = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".py": true, ".rb": true, ".java": true, ".kt": true, ".rs": true,
	".c": true, ".h": true, ".cc": true, ".cpp": true, ".hpp": true,
	".cs": true, ".php": true, ".swift": true, ".scala": true, ".ex": true,
	".exs": true, ".erl": true, ".ejs": true, ".vue": true, ".svelte": true,
	".sh": true, ".sql": true,
}

var configExts = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".env": true, ".conf": true, ".properties": true, ".xml": true,
}

var assetExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".ico": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp3": true, ".mp4": true, ".webm": true, ".css": true, ".scss": true,
	".less": true,
}

var dependencyFiles = map[string]bool{
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"go.sum": true, "cargo.lock": true, "gemfile.lock": true,
	"poetry.lock": true, "composer.lock": true,
}

var buildFiles = map[string]bool{
	"dockerfile": true, "makefile": true, "justfile": true, "rakefile": true,
	"docker-compose.yml": true, "docker-compose.yaml": true,
	"build.gradle": true, "build.gradle.kts": true, "cmakelists.txt": true,
}

// CategoryOf assigns a single category to a file. Dependency and test
// signals win over plain extension matches so a vendored .go file or a
// *_test.go file never counts as application source.
func CategoryOf(f File) string {
	lowPath := strings.ToLower(f.Path)
	lowName := strings.ToLower(f.Name)

	switch {
	case strings.HasPrefix(lowPath, "node_modules/") || strings.Contains(lowPath, "/node_modules/"),
		strings.HasPrefix(lowPath, "vendor/") || strings.Contains(lowPath, "/vendor/"),
		dependencyFiles[lowName]:
		return CategoryDependency
	case strings.HasSuffix(lowName, "_test.go"),
		strings.Contains(lowName, ".test.") || strings.Contains(lowName, ".spec."),
		strings.HasPrefix(lowPath, "test/") || strings.HasPrefix(lowPath, "tests/"),
		strings.Contains(lowPath, "/test/") || strings.Contains(lowPath, "/tests/"),
		strings.Contains(lowPath, "/__tests__/"):
		return CategoryTest
	case buildFiles[lowName],
		strings.HasPrefix(lowName, "dockerfile"),
		strings.HasPrefix(lowPath, ".github/workflows/"),
		strings.HasSuffix(lowName, ".mk"):
		return CategoryBuild
	case strings.HasSuffix(lowName, ".md") || strings.HasSuffix(lowName, ".rst") ||
		strings.HasSuffix(lowName, ".txt") && strings.Contains(lowName, "license") ||
		lowName == "license" || lowName == "notice" ||
		strings.HasPrefix(lowPath, "docs/") || strings.Contains(lowPath, "/docs/"):
		return CategoryDocumentation
	case sourceExts[f.Extension]:
		return CategorySource
	case configExts[f.Extension] || strings.HasPrefix(lowName, ".env"):
		return CategoryConfig
	case assetExts[f.Extension]:
		return CategoryAsset
	default:
		return CategoryOther
	}
}

// Categorize groups a file list into counts and per-category path lists.
func Categorize(files []File) Categories {
	out := Categories{
		Counts: make(map[string]int),
		Files:  make(map[string][]string),
	}
	for _, f := range files {
		if f.Type == "dir" {
			continue
		}
		cat := CategoryOf(f)
		out.Counts[cat]++
		out.Files[cat] = append(out.Files[cat], f.Path)
	}
	for _, paths := range out.Files {
		sort.Strings(paths)
	}
	return out
}
