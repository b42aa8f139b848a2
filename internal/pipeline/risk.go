package pipeline

import (
	"context"
	"fmt"
	"strings"

	"repolens/internal/analysis"
	"repolens/internal/githubrepo"
	"repolens/internal/llm"
)

// RiskPipeline scores complexity, dependency risk, and migration blockers,
// then folds them into an overall assessment.
type RiskPipeline struct {
	LLM *llm.Client
}

const (
	metaHotspots = "risk.hotspots"
	metaDepRisks = "risk.dependency_risks"
	metaBlockers = "risk.blockers"
)

type hotspotsResult struct {
	Hotspots []analysis.FileComplexity `json:"hotspots"`
}

type depRisksResult struct {
	DependencyRisks []analysis.DependencyRisk `json:"dependency_risks"`
}

type blockersResult struct {
	Blockers []analysis.MigrationBlocker `json:"blockers"`
}

type recommendationsResult struct {
	Recommendations []analysis.Recommendation `json:"recommendations"`
}

// Analyze runs the risk pipeline over everything produced so far.
func (p *RiskPipeline) Analyze(ctx context.Context, rc *RunContext, st State, snap *githubrepo.Snapshot, repo *analysis.RepositoryAnalysis, arch *analysis.ArchitectureAnalysis, flow *analysis.CodeFlowAnalysis) (State, *analysis.RiskAssessment, error) {
	var result analysis.RiskAssessment

	stages := []Stage{
		{
			Name:     "score_file_complexity",
			Progress: 80,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, tier, err := escalate(ctx, rc, "score_file_complexity",
					func(ctx context.Context) (hotspotsResult, error) {
						return llm.Generate[hotspotsResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Estimate complexity per source file: lines, cyclomatic complexity, a 0-100 maintainability index, and a risk level (low|medium|high).`,
								map[string]any{
									"files": sourceFileSizes(snap.Files, 200),
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "hotspots", Type: "[]{path,lines,complexity,maintainability,risk}", Required: true},
							}},
						})
					},
					nil,
					func() hotspotsResult {
						return hotspotsResult{Hotspots: fileComplexityFallback(snap.Files)}
					},
				)
				if err != nil {
					return nil, err
				}
				rc.Logf("complexity via %s tier: %d files scored", tier, len(out.Hotspots))
				return map[string]any{metaHotspots: out.Hotspots}, nil
			},
		},
		{
			Name:     "assess_dependency_risk",
			Progress: 86,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, _, err := escalate(ctx, rc, "assess_dependency_risk",
					func(ctx context.Context) (depRisksResult, error) {
						return llm.Generate[depRisksResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Flag risky third-party dependencies (abandoned, vulnerable, pinned to old majors). Severity is low|medium|high|critical.`,
								map[string]any{
									"manifests":  manifestContents(snap.Files),
									"tech_stack": arch.TechStack,
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "dependency_risks", Type: "[]{name,severity,reason}", Required: true},
							}},
						})
					},
					nil,
					func() depRisksResult {
						return depRisksResult{DependencyRisks: dependencyRisksFallback(snap)}
					},
				)
				if err != nil {
					return nil, err
				}
				return map[string]any{metaDepRisks: out.DependencyRisks}, nil
			},
		},
		{
			Name:     "identify_migration_blockers",
			Progress: 93,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				hotspots, _ := metaAs[[]analysis.FileComplexity](st, metaHotspots)
				out, _, err := escalate(ctx, rc, "identify_migration_blockers",
					func(ctx context.Context) (blockersResult, error) {
						return llm.Generate[blockersResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Identify obstacles to migrating or modernizing this codebase. Severity is minor|major|critical|blocker.`,
								map[string]any{
									"architecture_summary":  arch.Summary,
									"circular_dependencies": flow.CircularDependencies,
									"worst_files":           topHotspots(hotspots, 15),
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "blockers", Type: "[]{description,severity,paths}", Required: true},
							}},
						})
					},
					nil,
					func() blockersResult {
						return blockersResult{Blockers: blockersFallback(hotspots, flow.CircularDependencies)}
					},
				)
				if err != nil {
					return nil, err
				}
				return map[string]any{metaBlockers: out.Blockers}, nil
			},
		},
		{
			Name:     "synthesize_risk",
			Progress: 100,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				hotspots, ok := metaAs[[]analysis.FileComplexity](st, metaHotspots)
				if !ok {
					return nil, fmt.Errorf("missing %s in state", metaHotspots)
				}
				depRisks, _ := metaAs[[]analysis.DependencyRisk](st, metaDepRisks)
				blockers, _ := metaAs[[]analysis.MigrationBlocker](st, metaBlockers)

				// The overall score is always the deterministic weighted sum;
				// only the recommendation wording goes through the model.
				score := overallRiskScore(hotspots, depRisks, blockers)

				recs, _, err := escalate(ctx, rc, "synthesize_risk",
					func(ctx context.Context) (recommendationsResult, error) {
						return llm.Generate[recommendationsResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Write prioritized recommendations (priority low|medium|high) addressing these findings.`,
								map[string]any{
									"overall_score":    score,
									"worst_files":      topHotspots(hotspots, 10),
									"dependency_risks": depRisks,
									"blockers":         blockers,
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "recommendations", Type: "[]{title,detail,priority}", Required: true},
							}},
						})
					},
					nil,
					func() recommendationsResult {
						return recommendationsResult{Recommendations: recommendationsFallback(hotspots, depRisks, blockers)}
					},
				)
				if err != nil {
					return nil, err
				}

				result = analysis.RiskAssessment{
					OverallScore:       score,
					OverallLevel:       analysis.RiskLevelForScore(score),
					ComplexityHotspots: topHotspots(hotspots, 50),
					DependencyRisks:    depRisks,
					MigrationBlockers:  blockers,
					Recommendations:    recs.Recommendations,
					Summary: fmt.Sprintf("Overall risk %d/100 (%s): %d hotspots, %d dependency risks, %d blockers.",
						score, analysis.RiskLevelForScore(score), len(hotspots), len(depRisks), len(blockers)),
				}
				return nil, nil
			},
		},
	}

	st, err := Execute(ctx, rc, "risk", stages, st)
	if err != nil {
		return st, nil, err
	}
	return st, &result, nil
}

func topHotspots(hotspots []analysis.FileComplexity, max int) []analysis.FileComplexity {
	if len(hotspots) <= max {
		return hotspots
	}
	return hotspots[:max]
}

type fileSize struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

func sourceFileSizes(files []githubrepo.File, max int) []fileSize {
	var out []fileSize
	for _, f := range files {
		if githubrepo.CategoryOf(f) != githubrepo.CategorySource {
			continue
		}
		out = append(out, fileSize{Path: f.Path, Size: f.Size})
		if len(out) >= max {
			break
		}
	}
	return out
}

func manifestContents(files []githubrepo.File) map[string]string {
	out := map[string]string{}
	for _, f := range files {
		name := strings.ToLower(f.Name)
		if f.Content == "" {
			continue
		}
		switch name {
		case "package.json", "go.mod", "cargo.toml", "pyproject.toml", "pom.xml":
			out[f.Path] = f.Content
		}
	}
	return out
}

// dependencyRisksFallback flags only what the tree alone can show: a
// manifest without its lockfile.
func dependencyRisksFallback(snap *githubrepo.Snapshot) []analysis.DependencyRisk {
	have := map[string]bool{}
	for _, f := range snap.Files {
		have[strings.ToLower(f.Name)] = true
	}
	var out []analysis.DependencyRisk
	pairs := []struct{ manifest, lock string }{
		{"package.json", "package-lock.json"},
		{"cargo.toml", "cargo.lock"},
		{"gemfile", "gemfile.lock"},
	}
	for _, p := range pairs {
		if have[p.manifest] && !have[p.lock] && !(p.manifest == "package.json" && (have["yarn.lock"] || have["pnpm-lock.yaml"])) {
			out = append(out, analysis.DependencyRisk{
				Name:     p.manifest,
				Severity: analysis.SeverityMedium,
				Reason:   "manifest present without a lockfile; builds are not reproducible",
			})
		}
	}
	return out
}

// blockersFallback promotes the worst complexity findings and circular
// dependencies into blockers.
func blockersFallback(hotspots []analysis.FileComplexity, circular []analysis.CircularDependency) []analysis.MigrationBlocker {
	var out []analysis.MigrationBlocker
	var worst []string
	for _, h := range hotspots {
		if h.Risk == analysis.RiskHigh {
			worst = append(worst, h.Path)
		}
		if len(worst) >= 10 {
			break
		}
	}
	if len(worst) > 0 {
		out = append(out, analysis.MigrationBlocker{
			Description: fmt.Sprintf("%d files exceed complexity thresholds and resist incremental migration", len(worst)),
			Severity:    analysis.BlockerMajor,
			Paths:       worst,
		})
	}
	if len(circular) > 0 {
		var paths []string
		for _, c := range circular {
			paths = append(paths, c.From+" -> "+c.To)
		}
		out = append(out, analysis.MigrationBlocker{
			Description: "circular dependencies must be broken before module extraction",
			Severity:    analysis.BlockerCritical,
			Paths:       paths,
		})
	}
	return out
}
