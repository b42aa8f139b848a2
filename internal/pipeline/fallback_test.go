package pipeline

import (
	"math"
	"testing"

	"repolens/internal/analysis"
	"repolens/internal/githubrepo"
)

func ghFile(path string) githubrepo.File {
	f := githubrepo.File{Path: path, Type: "file"}
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			f.Name = path[i+1:]
			break
		}
	}
	if f.Name == "" {
		f.Name = path
	}
	for i := len(f.Name) - 1; i > 0; i-- {
		if f.Name[i] == '.' {
			f.Extension = f.Name[i:]
			break
		}
	}
	return f
}

func TestDetectPatternsFallback_MVC(t *testing.T) {
	files := []githubrepo.File{
		ghFile("src/controllers/UserController.js"),
		ghFile("src/models/User.js"),
		ghFile("src/views/user/index.ejs"),
	}
	got := detectPatternsFallback(files)
	if len(got) != 1 || got[0] != "MVC" {
		t.Fatalf("expected [MVC], got %v", got)
	}
}

func TestDetectPatternsFallback_CoOccurrence(t *testing.T) {
	files := []githubrepo.File{
		ghFile("app/controllers/OrderController.rb"),
		ghFile("app/models/Order.rb"),
		ghFile("app/views/orders.erb"),
		ghFile("app/services/billing_service.rb"),
		ghFile("Dockerfile"),
		ghFile("web/components/Button.tsx"),
	}
	got := detectPatternsFallback(files)
	want := map[string]bool{"MVC": true, "Layered": true, "Microservices": true, "Component-Based": true}
	if len(got) != len(want) {
		t.Fatalf("expected 4 patterns, got %v", got)
	}
	for _, p := range got {
		if !want[p] {
			t.Fatalf("unexpected pattern %q in %v", p, got)
		}
	}
}

func TestDetectPatternsFallback_NoSignals(t *testing.T) {
	if got := detectPatternsFallback([]githubrepo.File{ghFile("main.go")}); len(got) != 0 {
		t.Fatalf("expected no patterns, got %v", got)
	}
}

func TestComplexityOf(t *testing.T) {
	src := `func main() {
	if a && b {
		for i := 0; i < 10; i++ {
		}
	} else {
	}
}`
	// 1 base + func + if + && + for + else = 6
	if got := complexityOf(src); got != 6 {
		t.Fatalf("complexity: got %d want 6", got)
	}
}

func TestComplexityOf_Capped(t *testing.T) {
	src := ""
	for i := 0; i < 300; i++ {
		src += "if x { } else { }\n"
	}
	if got := complexityOf(src); got != complexityCap {
		t.Fatalf("complexity cap: got %d", got)
	}
}

func TestMaintainabilityIndex(t *testing.T) {
	got := maintainabilityIndex(100, 5)
	want := 100 - math.Log(100)*2 - 15
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("index: got %f want %f", got, want)
	}
	if maintainabilityIndex(100000, 100) != 0 {
		t.Fatal("index must clamp at zero")
	}
}

func TestRiskForFile_Thresholds(t *testing.T) {
	cases := []struct {
		loc, cx int
		want    analysis.RiskLevel
	}{
		{100, 5, analysis.RiskLow},
		{501, 5, analysis.RiskMedium},
		{100, 11, analysis.RiskMedium},
		{1001, 5, analysis.RiskHigh},
		{100, 21, analysis.RiskHigh},
	}
	for _, tc := range cases {
		if got := riskForFile(tc.loc, tc.cx); got != tc.want {
			t.Errorf("loc=%d cx=%d: got %s want %s", tc.loc, tc.cx, got, tc.want)
		}
	}
}

func TestOverallRiskScore_Scenario(t *testing.T) {
	// One critical dependency risk + one blocker-severity migration blocker
	// and no complexity hotspots: 10 + 15 = 25.
	deps := []analysis.DependencyRisk{{Name: "leftpad", Severity: analysis.SeverityCritical}}
	blockers := []analysis.MigrationBlocker{{Description: "x", Severity: analysis.BlockerBlocker}}
	if got := overallRiskScore(nil, deps, blockers); got != 25 {
		t.Fatalf("score: got %d want 25", got)
	}
}

func TestOverallRiskScore_ComplexityCappedAt40(t *testing.T) {
	hotspots := []analysis.FileComplexity{{Complexity: 90}, {Complexity: 90}}
	if got := overallRiskScore(hotspots, nil, nil); got != 40 {
		t.Fatalf("score: got %d want 40", got)
	}
}

func TestOverallRiskScore_CappedAt100(t *testing.T) {
	var deps []analysis.DependencyRisk
	for i := 0; i < 20; i++ {
		deps = append(deps, analysis.DependencyRisk{Severity: analysis.SeverityCritical})
	}
	if got := overallRiskScore(nil, deps, nil); got != 100 {
		t.Fatalf("score: got %d want 100", got)
	}
}

func TestTechStackFallback(t *testing.T) {
	files := []githubrepo.File{
		ghFile("main.go"), ghFile("a.go"), ghFile("web/app.ts"),
		ghFile("go.mod"), ghFile("Dockerfile"),
	}
	stack := techStackFallback(files)
	if len(stack.Languages) == 0 || stack.Languages[0] != "Go" {
		t.Fatalf("languages: %v", stack.Languages)
	}
	wantTools := map[string]bool{"go modules": true, "docker": true}
	if len(stack.BuildTools) != 2 {
		t.Fatalf("build tools: %v", stack.BuildTools)
	}
	for _, tool := range stack.BuildTools {
		if !wantTools[tool] {
			t.Fatalf("unexpected tool %q", tool)
		}
	}
}

func TestFileComplexityFallback_SkipsNonSource(t *testing.T) {
	files := []githubrepo.File{
		ghFile("main.go"),
		ghFile("README.md"),
		ghFile("vendor/dep/dep.go"),
	}
	out := fileComplexityFallback(files)
	if len(out) != 1 || out[0].Path != "main.go" {
		t.Fatalf("expected only main.go scored, got %+v", out)
	}
}
