// Package pipeline contains the four analysis orchestrators and the stage
// executor they share. Each pipeline is a fixed list of named stages folded
// over an immutable run state; stages escalate rich LLM -> simplified LLM ->
// deterministic heuristic before giving up.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"repolens/internal/analysis"
	"repolens/internal/githubrepo"
	"repolens/internal/llm"
)

// RepositoryPipeline produces the base RepositoryAnalysis every later
// pipeline builds on.
type RepositoryPipeline struct {
	LLM *llm.Client
}

const (
	metaPurpose      = "repository.purpose"
	metaNotableFiles = "repository.notable_files"
)

type purposeResult struct {
	Purpose          string   `json:"purpose"`
	Summary          string   `json:"summary"`
	MainTechnologies []string `json:"main_technologies"`
}

type notableFilesResult struct {
	NotableFiles []analysis.NotableFile `json:"notable_files"`
}

// Analyze runs the repository pipeline over the snapshot.
func (p *RepositoryPipeline) Analyze(ctx context.Context, rc *RunContext, st State, snap *githubrepo.Snapshot) (State, *analysis.RepositoryAnalysis, error) {
	var result analysis.RepositoryAnalysis

	stages := []Stage{
		{
			Name:     "summarize_purpose",
			Progress: 5,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, tier, err := escalate(ctx, rc, "summarize_purpose",
					func(ctx context.Context) (purposeResult, error) {
						return llm.Generate[purposeResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Determine what this repository is for. Use the metadata, the README excerpt, and the file category counts.`,
								map[string]any{
									"metadata":        snap.Metadata,
									"readme":          readmeExcerpt(snap, 4000),
									"category_counts": snap.Categories.Counts,
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "purpose", Type: "string", Required: true, Description: "one sentence: what the project is for"},
								{Name: "summary", Type: "string", Required: true, Description: "3-5 sentence overview"},
								{Name: "main_technologies", Type: "[]string", Required: false},
							}},
						})
					},
					func(ctx context.Context) (purposeResult, error) {
						return llm.Generate[purposeResult](ctx, p.LLM, llm.Request{
							Prompt: buildPrompt(`State this repository's purpose in one sentence.`,
								map[string]any{"metadata": snap.Metadata}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "purpose", Type: "string", Required: true},
							}},
						})
					},
					func() purposeResult { return purposeFallback(snap) },
				)
				if err != nil {
					return nil, err
				}
				rc.Logf("purpose resolved via %s tier", tier)
				return map[string]any{metaPurpose: out}, nil
			},
		},
		{
			Name:     "highlight_notable_files",
			Progress: 15,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, _, err := escalate(ctx, rc, "highlight_notable_files",
					func(ctx context.Context) (notableFilesResult, error) {
						return llm.Generate[notableFilesResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Pick the 5-10 files a new contributor should read first, with a short reason each.`,
								map[string]any{"files": fileListExcerpt(paths(snap.Files), 400)}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "notable_files", Type: "[]{path,reason}", Required: true},
							}},
						})
					},
					nil,
					func() notableFilesResult {
						return notableFilesResult{NotableFiles: notableFilesFallback(snap.Files)}
					},
				)
				if err != nil {
					return nil, err
				}
				return map[string]any{metaNotableFiles: out.NotableFiles}, nil
			},
		},
		{
			Name:     "synthesize_repository",
			Progress: 25,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				purpose, ok := metaAs[purposeResult](st, metaPurpose)
				if !ok {
					return nil, fmt.Errorf("missing %s in state", metaPurpose)
				}
				notable, _ := metaAs[[]analysis.NotableFile](st, metaNotableFiles)
				result = analysis.RepositoryAnalysis{
					Purpose:          purpose.Purpose,
					Summary:          purpose.Summary,
					MainTechnologies: purpose.MainTechnologies,
					NotableFiles:     notable,
					Categories: analysis.CategorySummary{
						Counts: snap.Categories.Counts,
						Files:  snap.Categories.Files,
					},
					Metadata: analysis.RepoMetadata(snap.Metadata),
				}
				return nil, nil
			},
		},
	}

	st, err := Execute(ctx, rc, "repository", stages, st)
	if err != nil {
		return st, nil, err
	}
	return st, &result, nil
}

func paths(files []githubrepo.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func readmeExcerpt(snap *githubrepo.Snapshot, max int) string {
	for _, f := range snap.Files {
		if strings.EqualFold(f.Name, "README.md") || strings.EqualFold(f.Name, "README") {
			if len(f.Content) > max {
				return f.Content[:max]
			}
			return f.Content
		}
	}
	return ""
}

// purposeFallback derives a low-confidence summary from metadata alone.
func purposeFallback(snap *githubrepo.Snapshot) purposeResult {
	stack := techStackFallback(snap.Files)
	purpose := strings.TrimSpace(snap.Metadata.Description)
	if purpose == "" {
		purpose = fmt.Sprintf("A %s repository named %s.", primaryLanguage(snap, stack), snap.Metadata.Name)
	}
	summary := fmt.Sprintf("%s/%s contains %d files (%d source).",
		snap.Metadata.Owner, snap.Metadata.Name,
		len(snap.Files), snap.Categories.Counts[githubrepo.CategorySource])
	return purposeResult{
		Purpose:          purpose,
		Summary:          summary,
		MainTechnologies: stack.Languages,
	}
}

func primaryLanguage(snap *githubrepo.Snapshot, stack analysis.TechStack) string {
	if snap.Metadata.Language != "" {
		return snap.Metadata.Language
	}
	if len(stack.Languages) > 0 {
		return stack.Languages[0]
	}
	return "software"
}

// notableFilesFallback picks manifests, docs, and entry points.
func notableFilesFallback(files []githubrepo.File) []analysis.NotableFile {
	var out []analysis.NotableFile
	for _, f := range files {
		name := strings.ToLower(f.Name)
		switch {
		case strings.HasPrefix(name, "readme"):
			out = append(out, analysis.NotableFile{Path: f.Path, Reason: "project overview"})
		case name == "go.mod" || name == "package.json" || name == "cargo.toml" || name == "pyproject.toml":
			out = append(out, analysis.NotableFile{Path: f.Path, Reason: "dependency manifest"})
		case entryNames[name]:
			out = append(out, analysis.NotableFile{Path: f.Path, Reason: "likely entry point"})
		}
		if len(out) >= 10 {
			break
		}
	}
	return out
}
