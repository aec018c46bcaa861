package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samogod/tunecfg/pkg/config"
	"github.com/samogod/tunecfg/pkg/database"
	"github.com/samogod/tunecfg/pkg/elastic"
	"github.com/samogod/tunecfg/pkg/resolver"
	"github.com/samogod/tunecfg/pkg/session"
	"github.com/samogod/tunecfg/pkg/tasks"

	"github.com/sirupsen/logrus"
)

var DebugLog func(string, ...interface{})

type Orchestrator struct {
	config        *config.Config
	configManager *config.Manager
	logger        *logrus.Logger
	db            *database.DB
	index         *elastic.Client
	session       *session.Session
	// init failures of enabled backends, reported when recording is asked for
	dbErr         error
	indexErr      error
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelText = "[INF]"
	case logrus.WarnLevel:
		levelText = "[WARN]"
	case logrus.ErrorLevel:
		levelText = "[ERR]"
	case logrus.DebugLevel:
		levelText = "[DBG]"
	default:
		levelText = "[???]"
	}
	return []byte(fmt.Sprintf("%s %s\n", levelText, entry.Message)), nil
}

func NewOrchestrator(configPath string) (*Orchestrator, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&customFormatter{})
	if DebugLog != nil {
		logger.SetLevel(logrus.DebugLevel)
	}

	configManager := config.NewManager(configPath)
	if err := configManager.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := configManager.GetConfig()

	db, dbErr := database.New(&cfg.Database)
	if dbErr != nil {
		logger.Warnf("Run registry initialization failed: %v", dbErr)
	}

	var index *elastic.Client
	var indexErr error
	if cfg.Elasticsearch.Enabled {
		index, indexErr = elastic.New(elastic.Config{
			URL:      cfg.Elasticsearch.URL,
			Username: cfg.Elasticsearch.Username,
			Password: cfg.Elasticsearch.Password,
			Index:    cfg.Elasticsearch.Index,
		})
		if indexErr != nil {
			logger.Warnf("Run index initialization failed: %v", indexErr)
		}
	}

	var sess *session.Session
	if cfg.Remote.Enabled {
		var err error
		sess, err = session.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create http session: %w", err)
		}
	}

	return &Orchestrator{
		config:        cfg,
		configManager: configManager,
		logger:        logger,
		db:            db,
		index:         index,
		session:       sess,
		dbErr:         dbErr,
		indexErr:      indexErr,
	}, nil
}

func (o *Orchestrator) Config() *config.Config {
	return o.config
}

func (o *Orchestrator) Logger() *logrus.Logger {
	return o.logger
}

func (o *Orchestrator) GetDB() *database.DB {
	return o.db
}

func (o *Orchestrator) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}

func (o *Orchestrator) debug(format string, args ...interface{}) {
	if DebugLog != nil {
		DebugLog(format, args...)
	}
}

// timeoutContext bounds calls to external services by the configured
// timeout.
func (o *Orchestrator) timeoutContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(o.config.DefaultSettings.Timeout)*time.Second)
}

func (o *Orchestrator) remoteSource() resolver.Source {
	if o.session == nil {
		return nil
	}
	return resolver.HTTPSource{Client: o.session.Client}
}

// locate maps a command-line target to a document path and the source that
// reads it and its imports. URLs come first, then files on disk, then
// bundled tasks.
func (o *Orchestrator) locate(target string) (string, resolver.Source, error) {
	if target == "" {
		return "", nil, fmt.Errorf("a document or task is required")
	}

	remote := o.remoteSource()

	if isURL(target) {
		if remote == nil {
			return "", nil, fmt.Errorf("remote imports are disabled; enable remote in the config to resolve %s", target)
		}
		o.debug("resolving remote document %s", target)
		return target, resolver.MultiSource{Files: resolver.OSSource{}, Remote: remote}, nil
	}

	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		o.debug("resolving file %s", target)
		return filepath.ToSlash(target), resolver.MultiSource{Files: resolver.OSSource{}, Remote: remote}, nil
	}

	if ref, ok := tasks.Lookup(target); ok {
		o.debug("resolving bundled task document %s", ref)
		return ref, resolver.MultiSource{Files: resolver.FSSource{FS: tasks.FS()}, Remote: remote}, nil
	}

	return "", nil, &resolver.ImportNotFoundError{Path: target}
}

func (o *Orchestrator) resolverFor(source resolver.Source) *resolver.Resolver {
	return resolver.New(source, o.logger)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
