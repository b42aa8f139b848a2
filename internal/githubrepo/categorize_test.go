package githubrepo

import "testing"

func file(path string) File {
	f := File{Path: path, Type: "file"}
	if i := lastIndexByte(path, '/'); i >= 0 {
		f.Name = path[i+1:]
	} else {
		f.Name = path
	}
	if j := lastIndexByte(f.Name, '.'); j > 0 {
		f.Extension = f.Name[j:]
	}
	return f
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"src/controllers/UserController.js", CategorySource},
		{"internal/llm/client.go", CategorySource},
		{"internal/llm/client_test.go", CategoryTest},
		{"tests/fixtures/sample.py", CategoryTest},
		{"web/components/__tests__/button.spec.ts", CategoryTest},
		{"config/app.yaml", CategoryConfig},
		{".env.example", CategoryConfig},
		{"README.md", CategoryDocumentation},
		{"docs/architecture.md", CategoryDocumentation},
		{"LICENSE", CategoryDocumentation},
		{"Dockerfile", CategoryBuild},
		{"Makefile", CategoryBuild},
		{".github/workflows/ci.yml", CategoryBuild},
		{"node_modules/left-pad/index.js", CategoryDependency},
		{"vendor/golang.org/x/net/http2/server.go", CategoryDependency},
		{"go.sum", CategoryDependency},
		{"assets/logo.svg", CategoryAsset},
		{"web/styles/main.css", CategoryAsset},
		{"data.bin", CategoryOther},
	}
	for _, tc := range cases {
		if got := CategoryOf(file(tc.path)); got != tc.want {
			t.Errorf("%s: got %s want %s", tc.path, got, tc.want)
		}
	}
}

func TestCategorize_CountsAndGroups(t *testing.T) {
	files := []File{
		file("main.go"),
		file("main_test.go"),
		file("README.md"),
		file("z.go"),
		file("a.go"),
	}
	got := Categorize(files)
	if got.Counts[CategorySource] != 3 {
		t.Fatalf("source count: %d", got.Counts[CategorySource])
	}
	if got.Counts[CategoryTest] != 1 {
		t.Fatalf("test count: %d", got.Counts[CategoryTest])
	}
	if got.Counts[CategoryDocumentation] != 1 {
		t.Fatalf("doc count: %d", got.Counts[CategoryDocumentation])
	}
	src := got.Files[CategorySource]
	if len(src) != 3 || src[0] != "a.go" {
		t.Fatalf("source paths not sorted: %v", src)
	}
}
