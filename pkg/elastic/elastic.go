package elastic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const DefaultIndex = "tunecfg_runs"

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Client struct {
	es    *es8.Client
	index string
}

// RunDocument is the searchable form of a recorded resolution. Documents
// are keyed by Fingerprint, so indexing the same output twice is a no-op.
type RunDocument struct {
	Document      string            `json:"document"`
	Fingerprint   string            `json:"fingerprint"`
	Parameters    map[string]string `json:"parameters"`
	Resolved      json.RawMessage   `json:"resolved"`
	FirstResolved time.Time         `json:"first_resolved"`
	LastResolved  time.Time         `json:"last_resolved"`
	ResolveCount  int               `json:"resolve_count"`
}

// ID is the index document ID of a run. The registry keys runs by document
// and fingerprint, so two documents resolving to the same output stay apart.
func (d RunDocument) ID() string {
	if d.Fingerprint == "" {
		return ""
	}
	return d.Document + "@" + d.Fingerprint
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("elasticsearch URL is required")
	}
	index := cfg.Index
	if strings.TrimSpace(index) == "" {
		index = DefaultIndex
	}

	es, err := es8.NewClient(es8.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %s", res.Status())
	}

	return &Client{es: es, index: index}, nil
}

func (c *Client) Index() string {
	return c.index
}

// bulk collects per-item failures of a bulk indexer.
type bulk struct {
	indexer esutil.BulkIndexer
	mu      sync.Mutex
	errs    []error
}

func (c *Client) newBulk() (*bulk, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     c.es,
		Index:      c.index,
		NumWorkers: 2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk indexer: %w", err)
	}
	return &bulk{indexer: bi}, nil
}

func (b *bulk) add(ctx context.Context, id string, body []byte) error {
	item := esutil.BulkIndexerItem{
		Action:     "index",
		DocumentID: id,
		Body:       bytes.NewReader(body),
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, resp esutil.BulkIndexerResponseItem, err error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if err == nil {
				err = fmt.Errorf("%s: %s", resp.Error.Type, resp.Error.Reason)
			}
			b.errs = append(b.errs, fmt.Errorf("document %s: %w", item.DocumentID, err))
		},
	}
	if err := b.indexer.Add(ctx, item); err != nil {
		return fmt.Errorf("bulk add failed: %w", err)
	}
	return nil
}

func (b *bulk) close(ctx context.Context) error {
	if err := b.indexer.Close(ctx); err != nil {
		return fmt.Errorf("bulk indexer close failed: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.errs...)
}

// IndexRuns bulk-indexes runs into the configured index.
func (c *Client) IndexRuns(ctx context.Context, runs []RunDocument) error {
	if len(runs) == 0 {
		return nil
	}

	b, err := c.newBulk()
	if err != nil {
		return err
	}

	for _, run := range runs {
		if run.Fingerprint == "" {
			b.indexer.Close(ctx)
			return fmt.Errorf("run for %s has no fingerprint", run.Document)
		}
		body, err := json.Marshal(run)
		if err != nil {
			b.indexer.Close(ctx)
			return fmt.Errorf("failed to encode run %s: %w", run.Fingerprint, err)
		}
		if err := b.add(ctx, run.ID(), body); err != nil {
			b.indexer.Close(ctx)
			return err
		}
	}

	return b.close(ctx)
}

// IndexJSONLinesFile bulk-loads an exported run history, one RunDocument
// per line. Lines with a fingerprint get the same document ID IndexRuns
// gives them.
func (c *Client) IndexJSONLinesFile(ctx context.Context, filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to open jsonl file: %w", err)
	}
	defer f.Close()

	b, err := c.newBulk()
	if err != nil {
		return 0, err
	}

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 8*1024*1024)

	count := 0
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var key RunDocument
		if err := json.Unmarshal(line, &key); err != nil {
			b.indexer.Close(ctx)
			return count, fmt.Errorf("%s:%d: invalid json: %w", filename, lineNo, err)
		}

		if err := b.add(ctx, key.ID(), append([]byte(nil), line...)); err != nil {
			b.indexer.Close(ctx)
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		b.indexer.Close(ctx)
		return count, fmt.Errorf("scanner error: %w", err)
	}

	return count, b.close(ctx)
}
