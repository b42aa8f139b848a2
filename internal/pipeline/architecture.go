package pipeline

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"repolens/internal/analysis"
	"repolens/internal/githubrepo"
	"repolens/internal/llm"
)

// ArchitecturePipeline infers patterns, stack, and components from the file
// tree plus the repository analysis.
type ArchitecturePipeline struct {
	LLM *llm.Client
}

const (
	metaPatterns   = "architecture.patterns"
	metaTechStack  = "architecture.tech_stack"
	metaComponents = "architecture.components"
)

type patternsResult struct {
	Patterns   []string           `json:"patterns"`
	Confidence analysis.RiskLevel `json:"confidence"`
}

type techStackResult struct {
	TechStack analysis.TechStack `json:"tech_stack"`
}

type componentsResult struct {
	Components  []analysis.Component  `json:"components"`
	EntryPoints []analysis.EntryPoint `json:"entry_points"`
}

type archSummaryResult struct {
	Summary string `json:"summary"`
}

// Analyze runs the architecture pipeline.
func (p *ArchitecturePipeline) Analyze(ctx context.Context, rc *RunContext, st State, snap *githubrepo.Snapshot, repo *analysis.RepositoryAnalysis) (State, *analysis.ArchitectureAnalysis, error) {
	var result analysis.ArchitectureAnalysis

	stages := []Stage{
		{
			Name:     "detect_patterns",
			Progress: 30,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, tier, err := escalate(ctx, rc, "detect_patterns",
					func(ctx context.Context) (patternsResult, error) {
						return llm.Generate[patternsResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Identify the architecture patterns this repository follows (e.g. MVC, Layered, Microservices, Component-Based, Event-Driven). Several may apply.`,
								map[string]any{
									"purpose": repo.Purpose,
									"files":   fileListExcerpt(paths(snap.Files), 400),
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "patterns", Type: "[]string", Required: true},
								{Name: "confidence", Type: "string", Required: true, Description: "low|medium|high"},
							}},
						})
					},
					func(ctx context.Context) (patternsResult, error) {
						out, err := llm.Generate[patternsResult](ctx, p.LLM, llm.Request{
							Prompt: buildPrompt(`List architecture pattern names seen in these paths.`,
								map[string]any{"files": fileListExcerpt(paths(snap.Files), 120)}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "patterns", Type: "[]string", Required: true},
							}},
						})
						out.Confidence = analysis.RiskMedium
						return out, err
					},
					func() patternsResult {
						return patternsResult{
							Patterns:   detectPatternsFallback(snap.Files),
							Confidence: analysis.RiskLow,
						}
					},
				)
				if err != nil {
					return nil, err
				}
				rc.Logf("patterns resolved via %s tier: %v", tier, out.Patterns)
				return map[string]any{metaPatterns: out}, nil
			},
		},
		{
			Name:     "analyze_tech_stack",
			Progress: 35,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, _, err := escalate(ctx, rc, "analyze_tech_stack",
					func(ctx context.Context) (techStackResult, error) {
						return llm.Generate[techStackResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Catalog the technology stack: languages, frameworks, build tools, platforms.`,
								map[string]any{
									"metadata":          snap.Metadata,
									"main_technologies": repo.MainTechnologies,
									"files":             fileListExcerpt(paths(snap.Files), 250),
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "tech_stack", Type: "{languages,frameworks,build_tools,platforms}", Required: true},
							}},
						})
					},
					nil,
					func() techStackResult {
						return techStackResult{TechStack: techStackFallback(snap.Files)}
					},
				)
				if err != nil {
					return nil, err
				}
				return map[string]any{metaTechStack: out.TechStack}, nil
			},
		},
		{
			Name:     "infer_components",
			Progress: 42,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, _, err := escalate(ctx, rc, "infer_components",
					func(ctx context.Context) (componentsResult, error) {
						return llm.Generate[componentsResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Infer the main components (name, root path, role) and the program entry points.`,
								map[string]any{
									"purpose": repo.Purpose,
									"files":   fileListExcerpt(paths(snap.Files), 400),
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "components", Type: "[]{name,path,role}", Required: true},
								{Name: "entry_points", Type: "[]{path,reason}", Required: true},
							}},
						})
					},
					func(ctx context.Context) (componentsResult, error) {
						return llm.Generate[componentsResult](ctx, p.LLM, llm.Request{
							Prompt: buildPrompt(`List the top-level components of this repository.`,
								map[string]any{"dirs": topDirs(snap.Files, 30)}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "components", Type: "[]{name,path,role}", Required: true},
							}},
						})
					},
					func() componentsResult {
						return componentsResult{
							Components:  componentsFallback(snap.Files),
							EntryPoints: entryPointsFallback(snap.Files),
						}
					},
				)
				if err != nil {
					return nil, err
				}
				return map[string]any{metaComponents: out}, nil
			},
		},
		{
			Name:     "synthesize_architecture",
			Progress: 50,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				patterns, ok := metaAs[patternsResult](st, metaPatterns)
				if !ok {
					return nil, fmt.Errorf("missing %s in state", metaPatterns)
				}
				stack, _ := metaAs[analysis.TechStack](st, metaTechStack)
				comps, _ := metaAs[componentsResult](st, metaComponents)

				summary, _, err := escalate(ctx, rc, "synthesize_architecture",
					func(ctx context.Context) (archSummaryResult, error) {
						return llm.Generate[archSummaryResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Write a short architecture overview paragraph combining the findings below.`,
								map[string]any{
									"patterns":   patterns.Patterns,
									"tech_stack": stack,
									"components": comps.Components,
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "summary", Type: "string", Required: true},
							}},
						})
					},
					nil,
					func() archSummaryResult {
						return archSummaryResult{Summary: archSummaryFallback(patterns.Patterns, stack, comps.Components)}
					},
				)
				if err != nil {
					return nil, err
				}
				result = analysis.ArchitectureAnalysis{
					Patterns:    patterns.Patterns,
					TechStack:   stack,
					Components:  comps.Components,
					EntryPoints: comps.EntryPoints,
					Summary:     summary.Summary,
					Confidence:  patterns.Confidence,
				}
				if result.Confidence == "" {
					result.Confidence = analysis.RiskMedium
				}
				return nil, nil
			},
		},
	}

	st, err := Execute(ctx, rc, "architecture", stages, st)
	if err != nil {
		return st, nil, err
	}
	return st, &result, nil
}

// topDirs lists the most populated top-level directories.
func topDirs(files []githubrepo.File, max int) []string {
	counts := map[string]int{}
	for _, f := range files {
		dir := f.Path
		if i := strings.IndexByte(dir, '/'); i >= 0 {
			dir = dir[:i]
		} else {
			continue
		}
		counts[dir]++
	}
	dirs := make([]string, 0, len(counts))
	for d := range counts {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		if counts[dirs[i]] != counts[dirs[j]] {
			return counts[dirs[i]] > counts[dirs[j]]
		}
		return dirs[i] < dirs[j]
	})
	if len(dirs) > max {
		dirs = dirs[:max]
	}
	return dirs
}

// componentsFallback treats each populated top-level directory as one
// component.
func componentsFallback(files []githubrepo.File) []analysis.Component {
	var out []analysis.Component
	for _, dir := range topDirs(files, 12) {
		role := "supporting code"
		switch dir {
		case "cmd", "bin":
			role = "executables"
		case "internal", "src", "lib", "app":
			role = "core logic"
		case "docs", "doc":
			role = "documentation"
		case "test", "tests":
			role = "tests"
		case "web", "ui", "frontend":
			role = "user interface"
		}
		out = append(out, analysis.Component{Name: path.Base(dir), Path: dir, Role: role})
	}
	return out
}

func archSummaryFallback(patterns []string, stack analysis.TechStack, comps []analysis.Component) string {
	pat := "no dominant pattern"
	if len(patterns) > 0 {
		pat = strings.Join(patterns, ", ")
	}
	lang := "an unknown language"
	if len(stack.Languages) > 0 {
		lang = stack.Languages[0]
	}
	return fmt.Sprintf("The codebase is primarily %s, organized around %d top-level components, following %s.",
		lang, len(comps), pat)
}
