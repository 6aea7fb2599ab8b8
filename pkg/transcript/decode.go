package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"call-analyzer/pkg/errors"
)

// Format identifies the serialization of a transcript document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension (.json, .yaml, .yml)
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.NewInvalidInput("unsupported transcript file type", map[string]interface{}{
			"path": path,
		})
	}
}

// Decode reads a document holding a sequence of utterance records and
// converts it with FromRecords. The document itself must be a sequence of
// mappings; the records inside it are converted leniently.
func Decode(r io.Reader, format Format) (Transcript, error) {
	var doc interface{}

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidInput, "failed to decode JSON transcript").
				WithField("cause", err.Error())
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.ErrInvalidInput, "failed to decode YAML transcript").
				WithField("cause", err.Error())
		}
	default:
		return nil, errors.NewInvalidInput(fmt.Sprintf("unknown transcript format %q", format))
	}

	records, err := Records(doc)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// Records asserts that a generic decoded value is a sequence of mappings.
// A nil document is an empty transcript.
func Records(doc interface{}) ([]map[string]interface{}, error) {
	if doc == nil {
		return []map[string]interface{}{}, nil
	}

	items, ok := doc.([]interface{})
	if !ok {
		return nil, errors.NewInvalidInput("transcript must be a list of utterance records")
	}

	records := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.NewInvalidInput("transcript entry is not a mapping", map[string]interface{}{
				"index": i,
			})
		}
		records = append(records, rec)
	}
	return records, nil
}
