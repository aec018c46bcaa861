package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/samogod/tunecfg/pkg/database"
	"github.com/samogod/tunecfg/pkg/document"
	"github.com/samogod/tunecfg/pkg/elastic"
	"github.com/samogod/tunecfg/pkg/params"
	"github.com/samogod/tunecfg/pkg/validate"
)

// ResolveOptions describes one resolution. Parameter sources are layered
// ParamsFile, then Environ (when UseEnv is set), then Assignments; later
// layers win.
type ResolveOptions struct {
	Target      string
	ParamsFile  string
	UseEnv      bool
	Environ     []string
	Assignments []string
	// Format overrides default_settings.output_format when set.
	Format     string
	NoValidate bool
	Record     bool
}

type ResolveResult struct {
	Document    string
	Parameters  params.Parameters
	Config      document.Document
	Format      document.Format
	Output      []byte
	Fingerprint digest.Digest
	// Run is the registry entry when the resolution was recorded.
	Run      *database.RunRecord
	Duration time.Duration
}

func (o *Orchestrator) Resolve(opts ResolveOptions) (*ResolveResult, error) {
	start := time.Now()

	format, err := o.outputFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	path, source, err := o.locate(opts.Target)
	if err != nil {
		return nil, err
	}
	r := o.resolverFor(source)

	p, err := o.parameters(opts, func() ([]string, error) { return r.References(path) })
	if err != nil {
		return nil, err
	}

	resolved, err := r.Resolve(path, p)
	if err != nil {
		return nil, err
	}

	if o.config.DefaultSettings.Validate && !opts.NoValidate {
		if err := validate.Check(resolved); err != nil {
			return nil, err
		}
	}

	output, err := document.Encode(resolved, format)
	if err != nil {
		return nil, err
	}

	fingerprint, err := document.Fingerprint(resolved)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{
		Document:    path,
		Parameters:  p,
		Config:      resolved,
		Format:      format,
		Output:      output,
		Fingerprint: fingerprint,
	}

	if opts.Record {
		if err := o.record(result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	o.debug("resolved %s to %s in %s", path, fingerprint, result.Duration)
	return result, nil
}

func (o *Orchestrator) outputFormat(flag string) (document.Format, error) {
	if flag == "" {
		flag = o.config.DefaultSettings.OutputFormat
	}
	return document.ParseFormat(flag)
}

// parameters layers the configured parameter sources. The environment is
// only consulted for names the document references.
func (o *Orchestrator) parameters(opts ResolveOptions, refs func() ([]string, error)) (params.Parameters, error) {
	var layers []params.Parameters

	if opts.ParamsFile != "" {
		fromFile, err := params.LoadFile(opts.ParamsFile)
		if err != nil {
			return nil, err
		}
		o.debug("loaded %d parameter(s) from %s", len(fromFile), opts.ParamsFile)
		layers = append(layers, fromFile)
	}

	if opts.UseEnv {
		names, err := refs()
		if err != nil {
			return nil, err
		}
		fromEnv := params.FromEnviron(opts.Environ, names)
		o.debug("took %d parameter(s) from the environment", len(fromEnv))
		layers = append(layers, fromEnv)
	}

	assigned, err := params.ParseAssignments(opts.Assignments)
	if err != nil {
		return nil, err
	}
	layers = append(layers, assigned)

	return params.Merge(layers...), nil
}

// record stores the run in the registry and the search index, whichever are
// enabled. Registry failures are fatal since recording was asked for; index
// failures are only logged.
func (o *Orchestrator) record(result *ResolveResult) error {
	if o.dbErr != nil {
		return fmt.Errorf("cannot record run, run registry is unavailable: %w", o.dbErr)
	}

	canonical, err := document.Canonical(result.Config)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	run := database.RunRecord{
		Document:      result.Document,
		Fingerprint:   result.Fingerprint.String(),
		Parameters:    result.Parameters,
		Resolved:      string(canonical),
		FirstResolved: now,
		LastResolved:  now,
		ResolveCount:  1,
	}

	stored := false
	if o.db != nil && o.db.IsEnabled() {
		run, err = o.db.RecordRun(run)
		if err != nil {
			return err
		}
		stored = true
		if run.ResolveCount > 1 {
			o.logger.Infof("%s resolved to %s before (%d times)", run.Document, run.Fingerprint, run.ResolveCount)
		}
	}

	if o.index != nil {
		ctx, cancel := o.timeoutContext()
		defer cancel()
		if err := o.index.IndexRuns(ctx, []elastic.RunDocument{runDocument(run)}); err != nil {
			o.logger.Warnf("Failed to index run %s: %v", run.Fingerprint, err)
		} else {
			stored = true
		}
	}

	if !stored {
		if o.indexErr != nil {
			o.logger.Warnf("Run was not recorded, run index is unavailable: %v", o.indexErr)
		} else {
			o.logger.Warn("Recording was requested but neither the run registry nor the run index is enabled")
		}
		return nil
	}

	result.Run = &run
	return nil
}

func runDocument(run database.RunRecord) elastic.RunDocument {
	return elastic.RunDocument{
		Document:      run.Document,
		Fingerprint:   run.Fingerprint,
		Parameters:    run.Parameters,
		Resolved:      json.RawMessage(run.Resolved),
		FirstResolved: run.FirstResolved,
		LastResolved:  run.LastResolved,
		ResolveCount:  run.ResolveCount,
	}
}

// ParameterReport is what the params command shows for a document.
type ParameterReport struct {
	Document   string
	Parameters []string
	Suspicious []params.Misspelling
}

// References lists the external parameters a target reads and flags names
// that look like misspellings of each other or of well-known names.
func (o *Orchestrator) References(target string) (*ParameterReport, error) {
	path, source, err := o.locate(target)
	if err != nil {
		return nil, err
	}

	names, err := o.resolverFor(source).References(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters of %s: %w", path, err)
	}

	return &ParameterReport{
		Document:   path,
		Parameters: names,
		Suspicious: params.Suspicious(names),
	}, nil
}
