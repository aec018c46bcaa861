package params

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseAssignments(t *testing.T) {
	p, err := ParseAssignments([]string{"SEED=13", "TRAIN_DATA_PATH=data/train.conllu", "EMPTY=", "EXPR=a=b"})
	if err != nil {
		t.Fatalf("ParseAssignments failed: %v", err)
	}

	want := map[string]string{"SEED": "13", "TRAIN_DATA_PATH": "data/train.conllu", "EMPTY": "", "EXPR": "a=b"}
	for k, v := range want {
		if p[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, p[k])
		}
	}

	for _, bad := range []string{"SEED", "=13", " =x"} {
		if _, err := ParseAssignments([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	content := "SEED: 13\nLR: 1.0e-5\nTRANSFORMERS_MODEL_NAME: roberta-base\nSHUFFLE: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write params file: %v", err)
	}

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	want := map[string]string{"SEED": "13", "LR": "1e-05", "TRANSFORMERS_MODEL_NAME": "roberta-base", "SHUFFLE": "true"}
	for k, v := range want {
		if p[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, p[k])
		}
	}
}

func TestLoadFile_RejectsNested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	if err := os.WriteFile(path, []byte("SEED:\n  nested: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write params file: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for nested value")
	}
}

func TestFromEnviron(t *testing.T) {
	environ := []string{"SEED=7", "HOME=/root", "BATCH_SIZE=16", "MALFORMED"}

	p := FromEnviron(environ, []string{"SEED", "BATCH_SIZE", "TOTAL_STEPS"})

	if len(p) != 2 || p["SEED"] != "7" || p["BATCH_SIZE"] != "16" {
		t.Fatalf("unexpected parameters %v", p)
	}
}

func TestMerge_LaterWins(t *testing.T) {
	merged := Merge(Parameters{"SEED": "1", "A": "a"}, Parameters{"SEED": "2"}, nil)
	if merged["SEED"] != "2" || merged["A"] != "a" {
		t.Fatalf("unexpected merge result %v", merged)
	}
}

func TestNearMatches(t *testing.T) {
	got := NearMatches("TRAINE_DATA_PATH", []string{"TRAIN_DATA_PATH", "VALIDATION_DATA_PATH", "TRAINE_DATA_PATH"})
	if len(got) != 1 || got[0] != "TRAIN_DATA_PATH" {
		t.Fatalf("unexpected matches %v", got)
	}
}

func TestSuspicious(t *testing.T) {
	tests := []struct {
		name       string
		referenced []string
		want       []Misspelling
	}{
		{
			name:       "canonical only",
			referenced: []string{"TRAIN_DATA_PATH", "VALIDATION_DATA_PATH"},
		},
		{
			name:       "variant spelling",
			referenced: []string{"TRAINE_DATA_PATH", "VALIDATION_DATA_PATH"},
			want:       []Misspelling{{Name: "TRAINE_DATA_PATH", Similar: "TRAIN_DATA_PATH"}},
		},
		{
			name:       "both spellings",
			referenced: []string{"TRAINE_DATA_PATH", "TRAIN_DATA_PATH"},
			want:       []Misspelling{{Name: "TRAINE_DATA_PATH", Similar: "TRAIN_DATA_PATH"}},
		},
		{
			name:       "unknown near known",
			referenced: []string{"BATCH_SIZ"},
			want:       []Misspelling{{Name: "BATCH_SIZ", Similar: "BATCH_SIZE"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suspicious(tt.referenced)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestNearMatches_OneEditAway(t *testing.T) {
	candidates := []string{"TRAIN_DATA_PATH", "TRAINE_DATA_PATH", "TRAIN_DATA_PATHS", "VALIDATION_DATA_PATH", "SEED"}

	got := NearMatches("TRAIN_DATA_PATH", candidates)
	if len(got) != 2 || got[0] != "TRAINE_DATA_PATH" || got[1] != "TRAIN_DATA_PATHS" {
		t.Errorf("unexpected near matches: %v", got)
	}
	if got := NearMatches("SEED", candidates); len(got) != 0 {
		t.Errorf("expected no near matches for SEED, got %v", got)
	}
}
