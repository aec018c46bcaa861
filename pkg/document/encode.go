package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Encode serializes doc deterministically: mapping keys are sorted, so equal
// documents always produce identical bytes.
func Encode(doc Document, format Format) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(doc)); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
	case FormatJSON, "":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(map[string]any(doc)); err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}

	return buf.Bytes(), nil
}

// Canonical is the compact JSON form used for fingerprints.
func Canonical(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(doc)); err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Fingerprint is the sha256 digest of the canonical encoding.
func Fingerprint(doc Document) (digest.Digest, error) {
	data, err := Canonical(doc)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(data), nil
}
