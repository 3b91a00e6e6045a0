package jsonld

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

func str() *jsonschema.Schema { return &jsonschema.Schema{Type: "string"} }
func obj() *jsonschema.Schema { return &jsonschema.Schema{Type: "object"} }

func dcatSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"@context", "@type", "title", "description", "dataset"},
		Properties: map[string]*jsonschema.Schema{
			"@context":    obj(),
			"@type":       str(),
			"title":       str(),
			"description": str(),
			"dataset": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"@type", "name", "title", "description", "identifier", "author"},
					Properties: map[string]*jsonschema.Schema{
						"@type":       str(),
						"name":        str(),
						"title":       str(),
						"description": str(),
						"identifier":  str(),
						"author":      str(),
						"distribution": {
							Type:  "array",
							Items: obj(),
						},
					},
				},
			},
		},
	}
}

func croissantSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"@context", "@type", "name"},
		Properties: map[string]*jsonschema.Schema{
			"@context":    obj(),
			"@type":       str(),
			"name":        str(),
			"title":       str(),
			"description": str(),
			"author":      str(),
			"keyword": {
				Type:  "array",
				Items: str(),
			},
			"distribution": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"@type", "name"},
					Properties: map[string]*jsonschema.Schema{
						"@type":          str(),
						"name":           str(),
						"contentUrl":     str(),
						"encodingFormat": str(),
						"sha256":         str(),
					},
				},
			},
		},
	}
}

var (
	resolveOnce       sync.Once
	resolvedDCAT      *jsonschema.Resolved
	resolvedCroissant *jsonschema.Resolved
	resolveErr        error
)

func schemas() (*jsonschema.Resolved, *jsonschema.Resolved, error) {
	resolveOnce.Do(func() {
		resolvedDCAT, resolveErr = dcatSchema().Resolve(nil)
		if resolveErr != nil {
			return
		}
		resolvedCroissant, resolveErr = croissantSchema().Resolve(nil)
	})
	return resolvedDCAT, resolvedCroissant, resolveErr
}

// ValidateDCAT checks a DCAT document against the minimal catalog schema.
// The returned error reads as a user-facing message.
func ValidateDCAT(raw []byte) error {
	dcat, _, err := schemas()
	if err != nil {
		return fmt.Errorf("failed to resolve DCAT schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("Error validating DCAT JSON: %v", err)
	}
	if err := dcat.Validate(doc); err != nil {
		return fmt.Errorf("Error validating DCAT JSON: %v", err)
	}
	return nil
}

// Validation is the outcome of checking a Croissant document. Errors block
// an import; warnings are reported alongside a successful one.
type Validation struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the document has no errors.
func (v Validation) OK() bool {
	return len(v.Errors) == 0
}

// ErrorMessage renders the errors as shown to users.
func (v Validation) ErrorMessage() string {
	return fmt.Sprintf("Error validating Croissant JSON: Found the following %d error(s) during the validation:\n%s",
		len(v.Errors), strings.Join(v.Errors, "\n"))
}

// WarningMessage renders the warnings as shown to users after an import.
func (v Validation) WarningMessage() string {
	return "Croissant JSON Uploaded to CKAN with warnings:\n" + strings.Join(v.Warnings, "\n")
}

var recommended = []string{"description", "license", "citeAs", "datePublished", "url", "version"}

// ValidateCroissant checks a Croissant document. The error is non-nil only
// when raw is not a JSON object.
func ValidateCroissant(raw []byte) (Validation, error) {
	var v Validation

	_, croissant, err := schemas()
	if err != nil {
		return v, fmt.Errorf("failed to resolve Croissant schema: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return v, fmt.Errorf("Error validating Croissant JSON: %v", err)
	}

	if err := croissant.Validate(doc); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				v.Errors = append(v.Errors, line)
			}
		}
	}
	if t, ok := doc["@type"].(string); ok && t != TypeDataset && !strings.HasSuffix(t, "/"+TypeDataset) {
		v.Errors = append(v.Errors, fmt.Sprintf("The current JSON-LD doesn't extend https://schema.org/Dataset (got @type %q).", t))
	}

	if _, ok := doc["conformsTo"]; !ok {
		v.Warnings = append(v.Warnings, `Property "http://purl.org/dc/terms/conformsTo" is recommended, but does not exist.`)
	}
	for _, key := range recommended {
		if isBlank(doc[key]) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Property %q is recommended, but does not exist.", SchemaOrg+key))
		}
	}
	return v, nil
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	default:
		return false
	}
}
