package document

import "reflect"

// Override describes a key whose base value was replaced during a merge.
type Override struct {
	Path string
	Old  any
	New  any
}

// Merge returns base with override applied on top. Mappings merge
// recursively; sequences and scalars in override replace the base value
// wholesale. Neither argument is modified.
func Merge(base, override Document) Document {
	return MergeObserved(base, override, nil)
}

// MergeObserved is Merge, reporting every replaced value to hook in sorted
// path order. Keys whose new value equals the old one are not reported.
func MergeObserved(base, override Document, hook func(Override)) Document {
	return Document(mergeMaps("", base, override, hook))
}

func mergeMaps(prefix string, base, override map[string]any, hook func(Override)) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = cloneValue(v)
	}

	for _, k := range SortedKeys(override) {
		next := override[k]
		path := joinPath(prefix, k)

		if prev, exists := out[k]; exists {
			prevMap, prevIsMap := prev.(map[string]any)
			nextMap, nextIsMap := next.(map[string]any)
			if prevIsMap && nextIsMap {
				out[k] = mergeMaps(path, prevMap, nextMap, hook)
				continue
			}
			if hook != nil && !reflect.DeepEqual(prev, next) {
				hook(Override{Path: path, Old: prev, New: next})
			}
		}
		out[k] = cloneValue(next)
	}

	return out
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
