package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// JSONExtractor pretty prints JSON documents.
type JSONExtractor struct{}

// NewJSONExtractor creates a JSON extractor.
func NewJSONExtractor() *JSONExtractor {
	return &JSONExtractor{}
}

// SupportedMIMETypes implements Extractor.
func (e *JSONExtractor) SupportedMIMETypes() []string {
	return []string{MIMEJSON}
}

// Extract implements Extractor. Object keys are reported sorted; arrays report their length.
func (e *JSONExtractor) Extract(_ context.Context, f File) (*Result, error) {
	data := bytes.TrimPrefix(f.Data, []byte("\xEF\xBB\xBF"))

	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidFile, err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: failed to format JSON: %v", ErrInvalidFile, err)
	}

	meta := map[string]any{}
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		meta["keys"] = keys
	case []any:
		meta["itemCount"] = len(val)
	}

	return &Result{Text: pretty.String(), Metadata: meta}, nil
}
