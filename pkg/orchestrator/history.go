package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/samogod/tunecfg/pkg/database"
	"github.com/samogod/tunecfg/pkg/resolver"
	"github.com/samogod/tunecfg/pkg/tasks"
)

// History returns the recorded runs of one document, or of every document
// when target is empty. Bundled task names are mapped to their documents.
func (o *Orchestrator) History(target string) ([]database.RunRecord, error) {
	if o.db == nil || !o.db.IsEnabled() {
		return nil, fmt.Errorf("run registry is not enabled. Please enable the database in config.yaml")
	}

	if target == "" {
		return o.db.QueryAllRuns()
	}

	runs, err := o.db.QueryRuns(target)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		if ref, ok := tasks.Lookup(target); ok && ref != target {
			return o.db.QueryRuns(ref)
		}
	}
	return runs, nil
}

// ExportHistory writes runs as JSON lines, one per run, in the form
// ImportHistory reads back.
func ExportHistory(w io.Writer, runs []database.RunRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, run := range runs {
		if err := enc.Encode(runDocument(run)); err != nil {
			return fmt.Errorf("failed to export run %s: %w", run.Fingerprint, err)
		}
	}
	return nil
}

// ImportHistory bulk-loads an exported history file into the run index.
func (o *Orchestrator) ImportHistory(filename string) (int, error) {
	if o.index == nil {
		return 0, fmt.Errorf("run index is not enabled. Please enable elasticsearch in config.yaml")
	}

	ctx, cancel := o.timeoutContext()
	defer cancel()

	n, err := o.index.IndexJSONLinesFile(ctx, filename)
	if err != nil {
		return n, err
	}
	o.logger.Infof("Indexed %d run(s) from %s into %s", n, filename, o.index.Index())
	return n, nil
}

// TaskDocument is a bundled top-level document with the parameters it
// requires.
type TaskDocument struct {
	Path       string
	Parameters []string
}

type TaskInfo struct {
	Name      string
	Documents []TaskDocument
}

func (o *Orchestrator) Tasks() ([]TaskInfo, error) {
	list, err := tasks.List()
	if err != nil {
		return nil, err
	}

	r := o.resolverFor(resolver.FSSource{FS: tasks.FS()})

	infos := make([]TaskInfo, 0, len(list))
	for _, task := range list {
		info := TaskInfo{Name: task.Name}
		for _, doc := range task.Documents {
			names, err := r.References(doc)
			if err != nil {
				return nil, fmt.Errorf("bundled task %s: %w", doc, err)
			}
			info.Documents = append(info.Documents, TaskDocument{Path: doc, Parameters: names})
		}
		infos = append(infos, info)
	}
	return infos, nil
}
