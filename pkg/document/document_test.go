package document

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoad_NormalizesValues(t *testing.T) {
	doc, err := Load([]byte(`
trainer:
  num_epochs: 5
  grad_norm: 10.0
  optimizer:
    lr: 1.0e-5
  tags: [a, 1]
flag: true
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if v, _ := doc.Get("trainer.num_epochs"); v != int64(5) {
		t.Errorf("num_epochs: expected int64(5), got %#v", v)
	}
	if v, _ := doc.Get("trainer.grad_norm"); v != 10.0 {
		t.Errorf("grad_norm: expected 10.0, got %#v", v)
	}
	if v, _ := doc.Get("trainer.optimizer.lr"); v != 1e-5 {
		t.Errorf("lr: expected 1e-5, got %#v", v)
	}
	if v, _ := doc.Get("trainer.tags.1"); v != int64(1) {
		t.Errorf("tags.1: expected int64(1), got %#v", v)
	}
	if v, _ := doc.Get("flag"); v != true {
		t.Errorf("flag: expected true, got %#v", v)
	}
	if _, ok := doc.Get("trainer.missing"); ok {
		t.Error("expected missing path to report !ok")
	}
}

func TestLoad_RejectsNonMappingRoot(t *testing.T) {
	if _, err := Load([]byte("- a\n- b\n")); err == nil {
		t.Fatal("expected error for sequence root")
	}
}

func TestLoad_Empty(t *testing.T) {
	doc, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc) != 0 {
		t.Fatalf("expected empty document, got %v", doc)
	}
}

func TestMerge_OverrideWins(t *testing.T) {
	base := Document{"k": "A", "keep": int64(1)}
	override := Document{"k": "B"}

	merged := Merge(base, override)

	if merged["k"] != "B" {
		t.Errorf("expected k=B, got %v", merged["k"])
	}
	if merged["keep"] != int64(1) {
		t.Errorf("expected keep=1, got %v", merged["keep"])
	}
}

func TestMerge_DeepMergesMappings(t *testing.T) {
	base := Document{"trainer": map[string]any{
		"optimizer": map[string]any{"type": "adamw", "lr": 1e-5, "weight_decay": 0.01},
		"patience":  int64(3),
	}}
	override := Document{"trainer": map[string]any{
		"optimizer": map[string]any{"lr": 2e-5},
	}}

	merged := Merge(base, override)

	if v, _ := merged.Get("trainer.optimizer.lr"); v != 2e-5 {
		t.Errorf("lr: expected 2e-5, got %v", v)
	}
	if v, _ := merged.Get("trainer.optimizer.type"); v != "adamw" {
		t.Errorf("type: expected adamw, got %v", v)
	}
	if v, _ := merged.Get("trainer.patience"); v != int64(3) {
		t.Errorf("patience: expected 3, got %v", v)
	}
}

func TestMerge_ReplacesSequences(t *testing.T) {
	base := Document{"groups": []any{"a", "b", "c"}}
	override := Document{"groups": []any{"z"}}

	merged := Merge(base, override)

	got := merged["groups"].([]any)
	if len(got) != 1 || got[0] != "z" {
		t.Fatalf("expected [z], got %v", got)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := Document{"trainer": map[string]any{"patience": int64(3)}}
	override := Document{"trainer": map[string]any{"patience": int64(5)}}

	merged := Merge(base, override)
	merged["trainer"].(map[string]any)["patience"] = int64(99)

	if v, _ := base.Get("trainer.patience"); v != int64(3) {
		t.Errorf("base mutated: %v", v)
	}
	if v, _ := override.Get("trainer.patience"); v != int64(5) {
		t.Errorf("override mutated: %v", v)
	}
}

func TestMergeObserved_ReportsOverrides(t *testing.T) {
	base := Document{
		"a":       int64(1),
		"same":    "x",
		"trainer": map[string]any{"lr": 1e-5},
	}
	override := Document{
		"a":       int64(2),
		"same":    "x",
		"new":     true,
		"trainer": map[string]any{"lr": 3e-5},
	}

	var seen []Override
	MergeObserved(base, override, func(o Override) { seen = append(seen, o) })

	if len(seen) != 2 {
		t.Fatalf("expected 2 overrides, got %d: %+v", len(seen), seen)
	}
	if seen[0].Path != "a" || seen[0].Old != int64(1) || seen[0].New != int64(2) {
		t.Errorf("unexpected first override: %+v", seen[0])
	}
	if seen[1].Path != "trainer.lr" {
		t.Errorf("expected trainer.lr, got %s", seen[1].Path)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	doc := Document{
		"z": int64(1),
		"a": map[string]any{"y": "<tag>", "b": []any{int64(1), 2.5}},
		"m": 1e-5,
	}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		first, err := Encode(doc, format)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", format, err)
		}
		for i := 0; i < 5; i++ {
			again, err := Encode(doc.Clone(), format)
			if err != nil {
				t.Fatalf("Encode(%s) failed: %v", format, err)
			}
			if !bytes.Equal(first, again) {
				t.Fatalf("%s output differs between runs:\n%s\n---\n%s", format, first, again)
			}
		}
	}

	out, _ := Encode(doc, FormatJSON)
	if !strings.Contains(string(out), `"<tag>"`) {
		t.Errorf("expected unescaped html in json output, got %s", out)
	}
	if strings.Index(string(out), `"a"`) > strings.Index(string(out), `"z"`) {
		t.Errorf("expected sorted keys, got %s", out)
	}
}

func TestEncode_ReloadIsStable(t *testing.T) {
	doc := Document{
		"trainer": map[string]any{"grad_norm": 1.0, "optimizer": map[string]any{"lr": 1e-5}},
		"seed":    int64(13),
	}

	first, err := Encode(doc, FormatJSON)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	reloaded, err := Load(first)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := Encode(reloaded, FormatJSON)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("reload changed output:\n%s\n---\n%s", first, second)
	}
}

func TestFingerprint(t *testing.T) {
	a := Document{"x": int64(1), "y": "two"}
	b := Document{"y": "two", "x": int64(1)}
	c := Document{"x": int64(2), "y": "two"}

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	fb, _ := Fingerprint(b)
	fc, _ := Fingerprint(c)

	if fa != fb {
		t.Errorf("equal documents fingerprinted differently: %s vs %s", fa, fb)
	}
	if fa == fc {
		t.Errorf("different documents share fingerprint %s", fa)
	}
	if err := fa.Validate(); err != nil {
		t.Errorf("invalid digest %s: %v", fa, err)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatJSON, "json": FormatJSON, "YAML": FormatYAML, "yml": FormatYAML}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Error("expected error for toml")
	}
}
