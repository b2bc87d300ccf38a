package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// Parse decodes a JSON metadata document.
// Breeze servers often ship metadata as a JSON string holding the document; both forms are accepted.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, malformed("invalid JSON: %v", err)
		}
		data = []byte(inner)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, malformed("invalid JSON: %v", err)
	}
	return &doc, nil
}

// ParseYAML decodes a YAML metadata document with the same field names as JSON
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, malformed("invalid YAML: %v", err)
	}
	return &doc, nil
}

// Load reads a metadata file, choosing the decoder from its extension
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

func malformed(format string, args ...interface{}) error {
	return &schema.MalformedMetadataError{Message: fmt.Sprintf(format, args...)}
}
