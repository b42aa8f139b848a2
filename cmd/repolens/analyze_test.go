package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"repolens/internal/analysis"
	"repolens/internal/run"
)

func TestSplitTarget(t *testing.T) {
	owner, repo, err := splitTarget("golang/go")
	if err != nil || owner != "golang" || repo != "go" {
		t.Fatalf("got %q %q %v", owner, repo, err)
	}
	for _, bad := range []string{"", "golang", "/go", "golang/"} {
		if _, _, err := splitTarget(bad); err == nil {
			t.Fatalf("%q must be rejected", bad)
		}
	}
}

func TestPrintResultFormats(t *testing.T) {
	final := run.Run{
		ID: "r1", Owner: "acme", Repo: "demo",
		Status:     run.StatusCompleted,
		StartedAt:  time.Now().Add(-time.Second),
		FinishedAt: time.Now(),
		Result: &analysis.Result{
			Repository: &analysis.RepositoryAnalysis{Purpose: "demo app"},
		},
	}

	analyzeFormat = "json"
	var buf bytes.Buffer
	if err := printResult(&buf, final); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"purpose": "demo app"`) {
		t.Fatalf("json output: %s", buf.String())
	}

	analyzeFormat = "yaml"
	buf.Reset()
	if err := printResult(&buf, final); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "purpose: demo app") {
		t.Fatalf("yaml output: %s", buf.String())
	}
}
