// Package tasks bundles the fine-tuning task configurations shipped with
// tunecfg.
package tasks

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed configs
var bundled embed.FS

const (
	baseDocument    = "base.yaml"
	defaultDocument = "transformers.yaml"
	readmeFile      = "README.md"
)

// Task is one bundled task directory.
type Task struct {
	Name string
	// Documents are the top-level documents, as paths inside FS().
	Documents []string
}

// FS exposes the bundled configurations rooted at the task directories.
func FS() fs.FS {
	sub, err := fs.Sub(bundled, "configs")
	if err != nil {
		panic(fmt.Sprintf("bundled configs missing: %v", err))
	}
	return sub
}

func List() ([]Task, error) {
	root := FS()
	entries, err := fs.ReadDir(root, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list bundled tasks: %w", err)
	}

	var tasks []Task
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := fs.ReadDir(root, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to list task %s: %w", e.Name(), err)
		}

		task := Task{Name: e.Name()}
		for _, f := range files {
			if f.IsDir() || f.Name() == baseDocument || path.Ext(f.Name()) != ".yaml" {
				continue
			}
			task.Documents = append(task.Documents, path.Join(e.Name(), f.Name()))
		}
		sort.Strings(task.Documents)
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks, nil
}

// Lookup maps a task reference to a bundled document path. It accepts
// "ner", "ner/luke" and "ner/luke.yaml".
func Lookup(ref string) (string, bool) {
	ref = strings.Trim(path.Clean(strings.TrimSpace(ref)), "/")
	if ref == "" || ref == "." {
		return "", false
	}

	candidates := []string{ref}
	if path.Ext(ref) == "" {
		candidates = []string{ref + ".yaml", path.Join(ref, defaultDocument)}
	}

	root := FS()
	for _, c := range candidates {
		if !fs.ValidPath(c) {
			continue
		}
		if info, err := fs.Stat(root, c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// Readme returns the documentation of a task directory.
func Readme(task string) (string, error) {
	data, err := fs.ReadFile(FS(), path.Join(task, readmeFile))
	if err != nil {
		return "", fmt.Errorf("no documentation for task %s: %w", task, err)
	}
	return string(data), nil
}
