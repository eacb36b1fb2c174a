package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"treasury/internal/compliance/models"
)

// readRawRecords loads one record or a list of records from path. Files
// ending in .yaml or .yml are decoded as YAML, everything else as JSON.
// A path of "-" reads JSON from stdin.
func readRawRecords(path string, stdin io.Reader) ([]models.RawRecord, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAMLRecords(data)
	default:
		return decodeJSONRecords(data)
	}
}

func decodeJSONRecords(data []byte) ([]models.RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode json: empty input")
	}
	if trimmed[0] == '[' {
		var raws []models.RawRecord
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return raws, nil
	}
	var raw models.RawRecord
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return []models.RawRecord{raw}, nil
}

func decodeYAMLRecords(data []byte) ([]models.RawRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("decode yaml: empty input")
	}
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var raws []models.RawRecord
		if err := root.Decode(&raws); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return raws, nil
	}
	var raw models.RawRecord
	if err := root.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return []models.RawRecord{raw}, nil
}
