package pipeline

import (
	"context"
	"fmt"

	"repolens/internal/analysis"
	"repolens/internal/githubrepo"
	"repolens/internal/llm"
)

// CodeFlowPipeline traces execution paths, dependencies, and data flows.
type CodeFlowPipeline struct {
	LLM *llm.Client
}

const (
	metaExecPaths = "codeflow.execution_paths"
	metaDepTree   = "codeflow.dependency_tree"
	metaCircular  = "codeflow.circular"
	metaDataFlows = "codeflow.data_flows"
)

type execPathsResult struct {
	ExecutionPaths []analysis.ExecutionPath `json:"execution_paths"`
}

type depNodesResult struct {
	Nodes []analysis.DependencyNode `json:"nodes"`
}

type dataFlowsResult struct {
	DataFlows []analysis.DataFlow `json:"data_flows"`
}

// Analyze runs the code-flow pipeline. arch may carry entry points inferred
// upstream; they seed both the LLM prompt and the heuristic fallback.
func (p *CodeFlowPipeline) Analyze(ctx context.Context, rc *RunContext, st State, snap *githubrepo.Snapshot, repo *analysis.RepositoryAnalysis, arch *analysis.ArchitectureAnalysis) (State, *analysis.CodeFlowAnalysis, error) {
	var result analysis.CodeFlowAnalysis

	entries := arch.EntryPoints
	if len(entries) == 0 {
		entries = entryPointsFallback(snap.Files)
	}

	stages := []Stage{
		{
			Name:     "trace_execution_paths",
			Progress: 55,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, tier, err := escalate(ctx, rc, "trace_execution_paths",
					func(ctx context.Context) (execPathsResult, error) {
						return llm.Generate[execPathsResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Trace the main execution paths from each entry point: name the path, list the files involved in call order.`,
								map[string]any{
									"entry_points": entries,
									"components":   arch.Components,
									"files":        fileListExcerpt(paths(snap.Files), 300),
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "execution_paths", Type: "[]{name,entry_point,steps}", Required: true},
							}},
						})
					},
					func(ctx context.Context) (execPathsResult, error) {
						return llm.Generate[execPathsResult](ctx, p.LLM, llm.Request{
							Prompt: buildPrompt(`For each entry point, list likely next files executed.`,
								map[string]any{"entry_points": entries}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "execution_paths", Type: "[]{name,entry_point,steps}", Required: true},
							}},
						})
					},
					func() execPathsResult {
						return execPathsResult{ExecutionPaths: executionPathsFallback(snap.Files, entries)}
					},
				)
				if err != nil {
					return nil, err
				}
				rc.Logf("execution paths via %s tier: %d paths", tier, len(out.ExecutionPaths))
				return map[string]any{metaExecPaths: out.ExecutionPaths}, nil
			},
		},
		{
			Name:     "analyze_dependencies",
			Progress: 62,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				nodes, _, err := escalate(ctx, rc, "analyze_dependencies",
					func(ctx context.Context) (depNodesResult, error) {
						return llm.Generate[depNodesResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Map intra-repository dependencies: for each module/directory, which other modules it imports.`,
								map[string]any{
									"components": arch.Components,
									"files":      fileListExcerpt(paths(snap.Files), 300),
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "nodes", Type: "[]{path,imports}", Required: true},
							}},
						})
					},
					nil,
					func() depNodesResult {
						return depNodesResult{Nodes: dependencyNodesFallback(snap.Files)}
					},
				)
				if err != nil {
					return nil, err
				}
				tree, circular := buildDependencyTree(snap.Metadata.Name, nodes.Nodes)
				if n := len(circular); n > 0 {
					rc.Logf("dependency tree: dropped %d circular edge(s)", n)
				}
				return map[string]any{metaDepTree: tree, metaCircular: circular}, nil
			},
		},
		{
			Name:     "analyze_data_flow",
			Progress: 68,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				out, _, err := escalate(ctx, rc, "analyze_data_flow",
					func(ctx context.Context) (dataFlowsResult, error) {
						return llm.Generate[dataFlowsResult](ctx, p.LLM, llm.Request{
							System: systemAnalyst,
							Prompt: buildPrompt(
								`Describe the major data flows: where data enters, what transforms it, where it ends up.`,
								map[string]any{
									"purpose":    repo.Purpose,
									"components": arch.Components,
									"tech_stack": arch.TechStack,
								}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "data_flows", Type: "[]{name,source,sink,via}", Required: true},
							}},
						})
					},
					func(ctx context.Context) (dataFlowsResult, error) {
						return llm.Generate[dataFlowsResult](ctx, p.LLM, llm.Request{
							Prompt: buildPrompt(`Name the main data flows of this system in source->sink form.`,
								map[string]any{"purpose": repo.Purpose}),
							Schema: llm.Schema{Fields: []llm.Field{
								{Name: "data_flows", Type: "[]{name,source,sink}", Required: true},
							}},
						})
					},
					func() dataFlowsResult {
						return dataFlowsResult{DataFlows: dataFlowsFallback(snap)}
					},
				)
				if err != nil {
					return nil, err
				}
				return map[string]any{metaDataFlows: out.DataFlows}, nil
			},
		},
		{
			Name:     "synthesize_code_flow",
			Progress: 75,
			Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
				execPaths, ok := metaAs[[]analysis.ExecutionPath](st, metaExecPaths)
				if !ok {
					return nil, fmt.Errorf("missing %s in state", metaExecPaths)
				}
				tree, _ := metaAs[analysis.DependencyTree](st, metaDepTree)
				circular, _ := metaAs[[]analysis.CircularDependency](st, metaCircular)
				flows, _ := metaAs[[]analysis.DataFlow](st, metaDataFlows)

				result = analysis.CodeFlowAnalysis{
					ExecutionPaths:       execPaths,
					DependencyTree:       tree,
					CircularDependencies: circular,
					DataFlows:            flows,
					Summary: fmt.Sprintf("%d execution paths, %d dependency nodes (%d circular edges dropped), %d data flows.",
						len(execPaths), len(tree.Nodes), len(circular), len(flows)),
				}
				return nil, nil
			},
		},
	}

	st, err := Execute(ctx, rc, "codeflow", stages, st)
	if err != nil {
		return st, nil, err
	}
	return st, &result, nil
}
