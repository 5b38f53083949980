package importer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/rshatalov/rpy/internal/models"
	contextutils "github.com/rshatalov/rpy/internal/utils"
)

//go:embed bundle.schema.json
var bundleSchemaJSON string

var bundleSchema = gojsonschema.NewStringLoader(bundleSchemaJSON)

// BundleQuestion is a question entry of a bundle
type BundleQuestion struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Difficulty *string  `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Bundle is a structured set of tags and questions
type Bundle struct {
	Tags      []models.TagInput `json:"tags,omitempty"`
	Questions []BundleQuestion  `json:"questions"`
}

// ParseBundle decodes a JSON or YAML bundle and validates it against the bundle schema
func ParseBundle(data []byte, format Format) (*Bundle, error) {
	var doc interface{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, contextutils.ErrInvalidFormat.With("invalid bundle: "+err.Error(), err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, contextutils.ErrInvalidFormat.With("invalid bundle: "+err.Error(), err)
		}
	default:
		return nil, contextutils.NewInvalidInputf("format %q is not a bundle format", format)
	}

	// Round-trip through JSON so YAML documents validate with the same schema.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to normalize bundle")
	}
	result, err := gojsonschema.Validate(bundleSchema, gojsonschema.NewBytesLoader(normalized))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to validate bundle")
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return nil, contextutils.NewInvalidInputf("bundle does not match schema: %s", strings.Join(problems, "; "))
	}

	var bundle Bundle
	if err := json.Unmarshal(normalized, &bundle); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode bundle")
	}
	return &bundle, nil
}
