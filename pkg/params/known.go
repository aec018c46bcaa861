package params

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// Known lists the parameters the bundled task configurations read.
// TRAINE_DATA_PATH is the spelling used by the entity typing base fragment;
// it is kept as a separate, recognized name and never folded into
// TRAIN_DATA_PATH.
var Known = map[string]string{
	"SEED":                    "random, numpy and pytorch seed",
	"BATCH_SIZE":              "training batch size",
	"ACCUMULATION_STEPS":      "gradient accumulation steps",
	"TRAIN_DATA_PATH":         "training data path",
	"TRAINE_DATA_PATH":        "training data path (entity typing base spelling)",
	"VALIDATION_DATA_PATH":    "validation data path",
	"NUM_STEPS_PER_EPOCH":     "optimizer steps per epoch",
	"TOTAL_STEPS":             "total optimizer steps",
	"TRANSFORMERS_MODEL_NAME": "pretrained transformer model name",
}

// Misspelling pairs a referenced name with a near-identical name from
// another set.
type Misspelling struct {
	Name    string
	Similar string
}

// NearMatches returns the candidates within one edit of name, excluding name
// itself, in sorted order.
func NearMatches(name string, candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if c != name && levenshtein.ComputeDistance(name, c) <= 1 {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Variants maps recognized alternate spellings to the name they shadow.
var Variants = map[string]string{
	"TRAINE_DATA_PATH": "TRAIN_DATA_PATH",
}

// Suspicious reports likely spelling mistakes among referenced names:
// recognized variant spellings, pairs of referenced names one edit apart, and
// unknown names one edit away from a known parameter. Each pair is reported
// once.
func Suspicious(referenced []string) []Misspelling {
	known := make([]string, 0, len(Known))
	for k := range Known {
		known = append(known, k)
	}

	seen := map[[2]string]bool{}
	var out []Misspelling
	add := func(name, similar string) {
		key := [2]string{name, similar}
		if similar < name {
			key = [2]string{similar, name}
		}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Misspelling{Name: name, Similar: similar})
	}

	for _, r := range referenced {
		if canonical, ok := Variants[r]; ok {
			add(r, canonical)
		}
		for _, m := range NearMatches(r, referenced) {
			add(r, m)
		}
		if _, ok := Known[r]; !ok {
			for _, m := range NearMatches(r, known) {
				add(r, m)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Similar < out[j].Similar
	})
	return out
}
