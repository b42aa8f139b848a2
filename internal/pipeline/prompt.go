package pipeline

import (
	"encoding/json"
	"sort"
	"strings"
)

// systemAnalyst is the shared system instruction for every analysis stage.
const systemAnalyst = "You are a senior software architect analyzing a GitHub repository. " +
	"Base every statement on the provided input; when unsure, prefer empty fields over guesses."

// buildPrompt renders a task description followed by the stage input as
// indented JSON, mirroring how stage inputs are fed to the model everywhere
// in this codebase.
func buildPrompt(task string, input any) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(task))
	b.WriteString("\n\n[INPUT JSON]\n")
	enc, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		b.WriteString("{}")
		return b.String()
	}
	b.Write(enc)
	return b.String()
}

// fileListExcerpt returns up to max paths for prompt embedding, preferring
// shorter (shallower) paths so the excerpt reads like a table of contents.
func fileListExcerpt(paths []string, max int) []string {
	if len(paths) <= max {
		return paths
	}
	out := make([]string, len(paths))
	copy(out, paths)
	sort.SliceStable(out, func(i, j int) bool { return depth(out[i]) < depth(out[j]) })
	return out[:max]
}

func depth(p string) int { return strings.Count(p, "/") }
