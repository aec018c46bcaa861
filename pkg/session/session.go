package session

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samogod/tunecfg/pkg/config"
)

var DebugLog func(string, ...interface{})

const userAgent = "tunecfg"

// Session is the HTTP client used for remote $extends imports.
type Session struct {
	Client *http.Client
	Config *config.Config
}

type LoggingTransport struct {
	Transport http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}

	if DebugLog != nil {
		DebugLog("requesting url: %s", req.URL.String())
	}

	start := time.Now()
	resp, err := t.Transport.RoundTrip(req)

	if DebugLog == nil {
		return resp, err
	}

	host := hostOf(req.URL.String())
	if err != nil {
		DebugLog("encountered an error with %s: %v", host, err)
		return resp, err
	}

	DebugLog("response for %s: status code %d in %s", req.URL.String(), resp.StatusCode, time.Since(start).Round(time.Millisecond))
	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		DebugLog("response content-type: %s", contentType)
	}

	if resp.StatusCode >= 400 && resp.Body != nil {
		head, readErr := io.ReadAll(io.LimitReader(resp.Body, 500))
		if readErr == nil && len(head) > 0 {
			DebugLog("error response body: %s", string(head))
		}
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(head), resp.Body), resp.Body}
	}

	return resp, err
}

func hostOf(url string) string {
	parts := strings.SplitN(url, "://", 2)
	if len(parts) == 2 {
		if host := strings.Split(parts[1], "/")[0]; host != "" {
			return host
		}
	}
	return "unknown"
}

// New builds a session whose requests time out after the config's remote
// timeout.
func New(cfg *config.Config) (*Session, error) {
	baseTransport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Timeout:   time.Duration(cfg.RemoteTimeout()) * time.Second,
		Transport: &LoggingTransport{Transport: baseTransport},
	}

	return &Session{
		Client: client,
		Config: cfg,
	}, nil
}
