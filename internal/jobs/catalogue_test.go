package jobs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "jobs.yaml", `
jobs:
  - id: "42"
    title: Backend Engineer
    company: Acme
    description: Build payment services
    requirements: 5+ years of Go
    experience_level: senior
  - id: "43"
    title: Data Analyst
`)

	catalogue, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if catalogue.Len() != 2 {
		t.Fatalf("expected 2 jobs, got %d", catalogue.Len())
	}

	job := catalogue.FindByID("42")
	if job == nil {
		t.Fatal("expected job 42 to be found")
	}

	posting := job.Posting()
	if posting.Title != "Backend Engineer" || posting.ExperienceLevel != "senior" || posting.Requirements != "5+ years of Go" {
		t.Fatalf("unexpected posting: %+v", posting)
	}

	labels := catalogue.Labels()
	if labels[0] != "42 Backend Engineer / Acme" || labels[1] != "43 Data Analyst" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "jobs.json", `{"jobs": [{"id": "1", "title": "QA", "experience_level": "entry"}]}`)

	catalogue, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if catalogue.Len() != 1 || catalogue.Items[0].ExperienceLevel != "entry" {
		t.Fatalf("unexpected catalogue: %+v", catalogue.Items)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "missing title", file: "jobs.yaml", content: "jobs:\n  - id: \"1\"\n"},
		{name: "duplicate id", file: "jobs.yaml", content: "jobs:\n  - id: \"1\"\n    title: A\n  - id: \"1\"\n    title: B\n"},
		{name: "malformed", file: "jobs.json", content: "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.file, tt.content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := Load(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestExclude(t *testing.T) {
	catalogue := &Catalogue{Items: []*Job{{ID: "1"}, {ID: "2"}, {ID: "3"}}}

	excluded := catalogue.Exclude([]string{"2", "missing"})
	if len(excluded) != 1 || excluded[0] != "2" {
		t.Fatalf("unexpected excluded ids: %v", excluded)
	}

	ids := make([]string, 0, catalogue.Len())
	for _, job := range catalogue.Items {
		ids = append(ids, job.ID)
	}
	sort.Strings(ids)

	if len(ids) != 2 || ids[0] != "1" || ids[1] != "3" {
		t.Fatalf("unexpected remaining ids: %v", ids)
	}
}
