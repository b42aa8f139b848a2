// Package analysis declares the structured results the pipelines produce.
// Every enumerated string field has a validating decoder so malformed model
// output fails at decode time instead of surfacing as zero values downstream.
package analysis

// RepositoryAnalysis is the first pipeline's output and part of every later
// pipeline's input.
type RepositoryAnalysis struct {
	Purpose          string           `json:"purpose"`
	Summary          string           `json:"summary"`
	MainTechnologies []string         `json:"main_technologies"`
	NotableFiles     []NotableFile    `json:"notable_files"`
	Categories       CategorySummary  `json:"categories"`
	Metadata         RepoMetadata     `json:"metadata"`
}

// NotableFile points at a file worth a reader's attention.
type NotableFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// CategorySummary carries the categorization counts computed by the content
// provider; the core never recomputes it.
type CategorySummary struct {
	Counts map[string]int      `json:"counts"`
	Files  map[string][]string `json:"files,omitempty"`
}

// RepoMetadata mirrors the repository metadata fetched from GitHub.
type RepoMetadata struct {
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	Stars         int    `json:"stars"`
	Forks         int    `json:"forks"`
	DefaultBranch string `json:"default_branch"`
}

// ArchitectureAnalysis is the second pipeline's output.
type ArchitectureAnalysis struct {
	Patterns    []string     `json:"patterns"`
	TechStack   TechStack    `json:"tech_stack"`
	Components  []Component  `json:"components"`
	EntryPoints []EntryPoint `json:"entry_points"`
	Summary     string       `json:"summary"`
	Confidence  RiskLevel    `json:"confidence"`
}

// TechStack groups detected technologies.
type TechStack struct {
	Languages  []string `json:"languages"`
	Frameworks []string `json:"frameworks"`
	BuildTools []string `json:"build_tools"`
	Platforms  []string `json:"platforms"`
}

// Component is one inferred architectural unit.
type Component struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Role string `json:"role"`
}

// EntryPoint is a likely program entry.
type EntryPoint struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// CodeFlowAnalysis is the third pipeline's output.
type CodeFlowAnalysis struct {
	ExecutionPaths       []ExecutionPath      `json:"execution_paths"`
	DependencyTree       DependencyTree       `json:"dependency_tree"`
	CircularDependencies []CircularDependency `json:"circular_dependencies"`
	DataFlows            []DataFlow           `json:"data_flows"`
	Summary              string               `json:"summary"`
}

// ExecutionPath describes one traced path through the code.
type ExecutionPath struct {
	Name       string   `json:"name"`
	EntryPoint string   `json:"entry_point"`
	Steps      []string `json:"steps"`
}

// DependencyTree is the acyclic view of intra-repo dependencies. Edges judged
// circular are dropped from Nodes and surfaced in CircularDependencies.
type DependencyTree struct {
	Root  string           `json:"root"`
	Nodes []DependencyNode `json:"nodes"`
}

// DependencyNode is one file/module and its imports.
type DependencyNode struct {
	Path    string   `json:"path"`
	Imports []string `json:"imports,omitempty"`
}

// CircularDependency records an edge dropped from the tree. Dropped is always
// true today; keeping the flag makes the omission explicit in reports.
type CircularDependency struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Dropped bool   `json:"dropped"`
	Note    string `json:"note,omitempty"`
}

// DataFlow describes how data moves between parts of the system.
type DataFlow struct {
	Name   string   `json:"name"`
	Source string   `json:"source"`
	Sink   string   `json:"sink"`
	Via    []string `json:"via,omitempty"`
}

// RiskAssessment is the final pipeline's output.
type RiskAssessment struct {
	OverallScore       int                `json:"overall_score"`
	OverallLevel       RiskLevel          `json:"overall_level"`
	ComplexityHotspots []FileComplexity   `json:"complexity_hotspots"`
	DependencyRisks    []DependencyRisk   `json:"dependency_risks"`
	MigrationBlockers  []MigrationBlocker `json:"migration_blockers"`
	Recommendations    []Recommendation   `json:"recommendations"`
	Summary            string             `json:"summary"`
}

// FileComplexity is one scored file.
type FileComplexity struct {
	Path            string    `json:"path"`
	Lines           int       `json:"lines"`
	Complexity      int       `json:"complexity"`
	Maintainability float64   `json:"maintainability"`
	Risk            RiskLevel `json:"risk"`
}

// DependencyRisk flags a risky external dependency.
type DependencyRisk struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

// MigrationBlocker is an obstacle to moving or modernizing the codebase.
type MigrationBlocker struct {
	Description string          `json:"description"`
	Severity    BlockerSeverity `json:"severity"`
	Paths       []string        `json:"paths,omitempty"`
}

// Recommendation is an actionable follow-up.
type Recommendation struct {
	Title    string    `json:"title"`
	Detail   string    `json:"detail"`
	Priority RiskLevel `json:"priority"`
}

// Result bundles every pipeline output for one run.
type Result struct {
	Repository   *RepositoryAnalysis   `json:"repository,omitempty"`
	Architecture *ArchitectureAnalysis `json:"architecture,omitempty"`
	CodeFlow     *CodeFlowAnalysis     `json:"code_flow,omitempty"`
	Risk         *RiskAssessment       `json:"risk,omitempty"`
}
