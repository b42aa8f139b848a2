package pipeline

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"sort"
	"strings"

	"repolens/internal/analysis"
	"repolens/internal/githubrepo"
)

// ---------------------------------------------------------------------------
// pattern detection
// ---------------------------------------------------------------------------

// detectPatternsFallback reports architecture patterns from path substrings
// alone. Multiple patterns may co-occur.
func detectPatternsFallback(files []githubrepo.File) []string {
	var (
		hasController, hasModel, hasView bool
		hasLayered                       bool
		hasContainer, hasServiceDirs     bool
		hasComponent                     bool
	)
	for _, f := range files {
		p := strings.ToLower(f.Path)
		if strings.Contains(p, "controller") {
			hasController = true
		}
		if strings.Contains(p, "model") {
			hasModel = true
		}
		if strings.Contains(p, "view") {
			hasView = true
		}
		if strings.Contains(p, "service") || strings.Contains(p, "repository") || strings.Contains(p, "dao") {
			hasLayered = true
		}
		name := strings.ToLower(f.Name)
		if strings.HasPrefix(name, "dockerfile") || strings.HasPrefix(name, "docker-compose") {
			hasContainer = true
		}
		// "services/api/...", "cmd/services/..." style nested service dirs.
		if strings.Contains(p, "service/") || strings.Contains(p, "services/") {
			hasServiceDirs = true
		}
		if strings.Contains(p, "component") || strings.Contains(p, "module") {
			hasComponent = true
		}
	}

	var patterns []string
	if hasController && hasModel && hasView {
		patterns = append(patterns, "MVC")
	}
	if hasLayered {
		patterns = append(patterns, "Layered")
	}
	if hasContainer || hasServiceDirs {
		patterns = append(patterns, "Microservices")
	}
	if hasComponent {
		patterns = append(patterns, "Component-Based")
	}
	return patterns
}

// ---------------------------------------------------------------------------
// file complexity
// ---------------------------------------------------------------------------

var (
	controlFlowRe = regexp.MustCompile(`\b(if|else|while|for|switch|case|catch)\b|&&|\|\|`)
	definitionRe  = regexp.MustCompile(`\b(func|function|def|class|fn|impl|interface|struct)\b`)
)

const complexityCap = 100

// complexityOf counts control-flow and definition keywords with a base of 1.
func complexityOf(content string) int {
	c := 1 + len(controlFlowRe.FindAllStringIndex(content, -1)) +
		len(definitionRe.FindAllStringIndex(content, -1))
	if c > complexityCap {
		return complexityCap
	}
	return c
}

// maintainabilityIndex is max(0, 100 - ln(loc)*2 - complexity*3).
func maintainabilityIndex(loc, complexity int) float64 {
	if loc < 1 {
		loc = 1
	}
	idx := 100 - math.Log(float64(loc))*2 - float64(complexity)*3
	if idx < 0 {
		return 0
	}
	return idx
}

func riskForFile(loc, complexity int) analysis.RiskLevel {
	switch {
	case loc > 1000 || complexity > 20:
		return analysis.RiskHigh
	case loc > 500 || complexity > 10:
		return analysis.RiskMedium
	default:
		return analysis.RiskLow
	}
}

// estimatedBytesPerLine approximates line counts for files fetched without
// content; only tree sizes are known for most of the repo.
const estimatedBytesPerLine = 40

// scoreFileComplexity scores one file. When content is absent, lines are
// estimated from the blob size and complexity from the line estimate.
func scoreFileComplexity(f githubrepo.File) analysis.FileComplexity {
	var loc, cx int
	if f.Content != "" {
		loc = strings.Count(f.Content, "\n") + 1
		cx = complexityOf(f.Content)
	} else {
		loc = f.Size / estimatedBytesPerLine
		if loc < 1 {
			loc = 1
		}
		cx = 1 + loc/50
		if cx > complexityCap {
			cx = complexityCap
		}
	}
	return analysis.FileComplexity{
		Path:            f.Path,
		Lines:           loc,
		Complexity:      cx,
		Maintainability: maintainabilityIndex(loc, cx),
		Risk:            riskForFile(loc, cx),
	}
}

// fileComplexityFallback scores every source file, worst first.
func fileComplexityFallback(files []githubrepo.File) []analysis.FileComplexity {
	var out []analysis.FileComplexity
	for _, f := range files {
		if githubrepo.CategoryOf(f) != githubrepo.CategorySource {
			continue
		}
		out = append(out, scoreFileComplexity(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Complexity != out[j].Complexity {
			return out[i].Complexity > out[j].Complexity
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// ---------------------------------------------------------------------------
// overall risk score
// ---------------------------------------------------------------------------

// overallRiskScore is the weighted fallback score, capped at 100: average
// complexity contributes at most 40, then 10 per critical dependency risk,
// 5 per high one, 15 per blocker-severity migration blocker, 10 per
// critical-severity one.
func overallRiskScore(hotspots []analysis.FileComplexity, deps []analysis.DependencyRisk, blockers []analysis.MigrationBlocker) int {
	var avg float64
	if len(hotspots) > 0 {
		total := 0
		for _, h := range hotspots {
			total += h.Complexity
		}
		avg = float64(total) / float64(len(hotspots))
	}
	if avg > 40 {
		avg = 40
	}
	score := avg
	for _, d := range deps {
		switch d.Severity {
		case analysis.SeverityCritical:
			score += 10
		case analysis.SeverityHigh:
			score += 5
		}
	}
	for _, b := range blockers {
		switch b.Severity {
		case analysis.BlockerBlocker:
			score += 15
		case analysis.BlockerCritical:
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

// ---------------------------------------------------------------------------
// remaining heuristics
// ---------------------------------------------------------------------------

var entryNames = map[string]bool{
	"main.go": true, "main.py": true, "main.rs": true, "main.c": true,
	"index.js": true, "index.ts": true, "app.js": true, "app.py": true,
	"server.js": true, "server.ts": true, "manage.py": true,
}

func entryPointsFallback(files []githubrepo.File) []analysis.EntryPoint {
	var out []analysis.EntryPoint
	for _, f := range files {
		if entryNames[strings.ToLower(f.Name)] {
			out = append(out, analysis.EntryPoint{Path: f.Path, Reason: "conventional entry file name"})
		}
	}
	return out
}

// executionPathsFallback derives one coarse path per entry point: entry →
// containing package → categorized neighbors.
func executionPathsFallback(files []githubrepo.File, entries []analysis.EntryPoint) []analysis.ExecutionPath {
	var out []analysis.ExecutionPath
	for _, e := range entries {
		dir := path.Dir(e.Path)
		steps := []string{e.Path}
		for _, f := range files {
			if f.Path != e.Path && path.Dir(f.Path) == dir {
				steps = append(steps, f.Path)
			}
			if len(steps) >= 6 {
				break
			}
		}
		out = append(out, analysis.ExecutionPath{
			Name:       "startup via " + path.Base(e.Path),
			EntryPoint: e.Path,
			Steps:      steps,
		})
	}
	return out
}

// dependencyNodesFallback approximates imports by directory containment:
// each source directory depends on its subdirectories.
func dependencyNodesFallback(files []githubrepo.File) []analysis.DependencyNode {
	children := map[string]map[string]bool{}
	for _, f := range files {
		if githubrepo.CategoryOf(f) != githubrepo.CategorySource {
			continue
		}
		dir := path.Dir(f.Path)
		if dir == "." {
			continue
		}
		parent := path.Dir(dir)
		if parent == "." || parent == dir {
			continue
		}
		if children[parent] == nil {
			children[parent] = map[string]bool{}
		}
		children[parent][dir] = true
	}
	parents := make([]string, 0, len(children))
	for p := range children {
		parents = append(parents, p)
	}
	sort.Strings(parents)
	out := make([]analysis.DependencyNode, 0, len(parents))
	for _, p := range parents {
		imports := make([]string, 0, len(children[p]))
		for c := range children[p] {
			imports = append(imports, c)
		}
		sort.Strings(imports)
		out = append(out, analysis.DependencyNode{Path: p, Imports: imports})
	}
	return out
}

func dataFlowsFallback(snap *githubrepo.Snapshot) []analysis.DataFlow {
	var out []analysis.DataFlow
	if snap.Categories.Counts[githubrepo.CategoryConfig] > 0 {
		out = append(out, analysis.DataFlow{
			Name:   "configuration load",
			Source: "config files",
			Sink:   "application startup",
		})
	}
	if snap.Categories.Counts[githubrepo.CategorySource] > 0 {
		out = append(out, analysis.DataFlow{
			Name:   "request handling",
			Source: "external input",
			Sink:   "application output",
			Via:    []string{"entry point", "core logic"},
		})
	}
	return out
}

// recommendationsFallback derives follow-ups from the computed risk inputs.
func recommendationsFallback(hotspots []analysis.FileComplexity, deps []analysis.DependencyRisk, blockers []analysis.MigrationBlocker) []analysis.Recommendation {
	var out []analysis.Recommendation
	highCount := 0
	for _, h := range hotspots {
		if h.Risk == analysis.RiskHigh {
			highCount++
		}
	}
	if highCount > 0 {
		out = append(out, analysis.Recommendation{
			Title:    "Refactor high-complexity files",
			Detail:   fmt.Sprintf("%d files exceed the complexity thresholds; split them before further changes.", highCount),
			Priority: analysis.RiskHigh,
		})
	}
	for _, d := range deps {
		if d.Severity == analysis.SeverityCritical {
			out = append(out, analysis.Recommendation{
				Title:    "Replace critical dependency " + d.Name,
				Detail:   d.Reason,
				Priority: analysis.RiskHigh,
			})
		}
	}
	if len(blockers) > 0 {
		out = append(out, analysis.Recommendation{
			Title:    "Resolve migration blockers",
			Detail:   fmt.Sprintf("%d blockers recorded; address blocker-severity items first.", len(blockers)),
			Priority: analysis.RiskMedium,
		})
	}
	if len(out) == 0 {
		out = append(out, analysis.Recommendation{
			Title:    "No urgent action",
			Detail:   "Heuristic scan found no high-risk files, dependencies, or blockers.",
			Priority: analysis.RiskLow,
		})
	}
	return out
}

var extLanguages = map[string]string{
	".go": "Go", ".js": "JavaScript", ".jsx": "JavaScript", ".ts": "TypeScript",
	".tsx": "TypeScript", ".py": "Python", ".rb": "Ruby", ".java": "Java",
	".kt": "Kotlin", ".rs": "Rust", ".c": "C", ".cc": "C++", ".cpp": "C++",
	".cs": "C#", ".php": "PHP", ".swift": "Swift", ".scala": "Scala",
	".ex": "Elixir", ".exs": "Elixir",
}

// techStackFallback infers languages from extensions and build tools from
// well-known file names.
func techStackFallback(files []githubrepo.File) analysis.TechStack {
	langCounts := map[string]int{}
	toolSet := map[string]bool{}
	for _, f := range files {
		if lang, ok := extLanguages[f.Extension]; ok {
			langCounts[lang]++
		}
		switch strings.ToLower(f.Name) {
		case "go.mod":
			toolSet["go modules"] = true
		case "package.json":
			toolSet["npm"] = true
		case "cargo.toml":
			toolSet["cargo"] = true
		case "pom.xml":
			toolSet["maven"] = true
		case "build.gradle", "build.gradle.kts":
			toolSet["gradle"] = true
		case "makefile":
			toolSet["make"] = true
		case "dockerfile":
			toolSet["docker"] = true
		}
	}
	langs := make([]string, 0, len(langCounts))
	for l := range langCounts {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if langCounts[langs[i]] != langCounts[langs[j]] {
			return langCounts[langs[i]] > langCounts[langs[j]]
		}
		return langs[i] < langs[j]
	})
	tools := make([]string, 0, len(toolSet))
	for tl := range toolSet {
		tools = append(tools, tl)
	}
	sort.Strings(tools)
	return analysis.TechStack{Languages: langs, BuildTools: tools}
}
