package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samogod/tunecfg/pkg/orchestrator"
	"github.com/samogod/tunecfg/pkg/params"
	"github.com/samogod/tunecfg/pkg/validate"
)

func TestNormalizeArgs(t *testing.T) {
	in := []string{"tunecfg", "ner", "-params-file", "p.yaml", "-env", "-p", "SEED=1", "-no-validate"}
	want := "tunecfg ner --params-file p.yaml --env -p SEED=1 --no-validate"

	if got := strings.Join(normalizeArgs(in), " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if in[2] != "-params-file" {
		t.Error("normalizeArgs must not modify its input")
	}
}

func TestErrorLines(t *testing.T) {
	verr := &validate.Error{Issues: []validate.Issue{
		{Path: "train_data_path", Message: "required"},
		{Path: "data_loader.batch_size", Message: "must be a positive integer, got 0"},
	}}
	lines := errorLines(verr)
	if len(lines) != 3 || lines[1] != "  train_data_path: required" {
		t.Errorf("unexpected lines: %q", lines)
	}

	lines = errorLines(errors.New("boom"))
	if len(lines) != 1 || lines[0] != "Resolution failed: boom" {
		t.Errorf("unexpected lines: %q", lines)
	}
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	result := &orchestrator.ResolveResult{Output: []byte("{\n  \"a\": 1\n}\n")}

	if err := writeOutput(result, path); err != nil {
		t.Fatalf("writeOutput failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.Equal(data, result.Output) {
		t.Errorf("unexpected output %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestShortFingerprint(t *testing.T) {
	cases := map[string]string{
		"sha256:0123456789abcdef0123": "sha256:0123456789ab",
		"sha256:abc":                  "sha256:abc",
		"plain":                       "plain",
	}
	for in, want := range cases {
		if got := shortFingerprint(in); got != want {
			t.Errorf("shortFingerprint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatParameters(t *testing.T) {
	if got := formatParameters(nil); got != "-" {
		t.Errorf("expected -, got %q", got)
	}
	got := formatParameters(map[string]string{"TRAIN_DATA_PATH": "t", "SEED": "1"})
	if got != "SEED=1 TRAIN_DATA_PATH=t" {
		t.Errorf("unexpected parameters %q", got)
	}
}

func TestRenderParameters(t *testing.T) {
	var buf bytes.Buffer
	renderParameters(&orchestrator.ParameterReport{
		Document:   "entity_typing/transformers.yaml",
		Parameters: []string{"SEED", "TRAINE_DATA_PATH", "CUSTOM"},
		Suspicious: []params.Misspelling{{Name: "TRAINE_DATA_PATH", Similar: "TRAIN_DATA_PATH"}},
	}, &buf)

	out := strings.ToUpper(buf.String())
	for _, want := range []string{"entity_typing/transformers.yaml", "TRAINE_DATA_PATH", params.Known["SEED"], "CUSTOM", "TOTAL"} {
		if !strings.Contains(out, strings.ToUpper(want)) {
			t.Errorf("expected table to contain %q:\n%s", want, out)
		}
	}
}
