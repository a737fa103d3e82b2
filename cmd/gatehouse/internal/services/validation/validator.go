// Package validation checks request bodies against JSON schemas registered at
// startup.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrUnknownSchema is returned when validating against an unregistered name.
	ErrUnknownSchema = errors.New("unknown schema")

	// ErrMalformedBody is returned when the body is not valid JSON.
	ErrMalformedBody = errors.New("malformed JSON body")
)

// FieldError is one schema violation. Field is a JSON pointer into the body
// ("" for the document root).
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator validates request bodies against named schemas.
type Validator interface {
	// Validate returns the violations of body against the named schema. An
	// empty slice means the body is valid.
	Validate(name string, body []byte) ([]FieldError, error)
}

// SchemaValidator implements Validator using santhosh-tekuri/jsonschema/v6.
// Compiled schemas are kept in an LRU keyed by name; the source is kept so an
// evicted schema can be recompiled.
type SchemaValidator struct {
	schemaCache *lru.Cache[string, *jsonschema.Schema]
	sources     map[string]string
	printer     *message.Printer
}

// NewSchemaValidator creates a new validator with LRU caching for compiled schemas
func NewSchemaValidator(cacheSize int) (*SchemaValidator, error) {
	cache, err := lru.New[string, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &SchemaValidator{
		schemaCache: cache,
		sources:     make(map[string]string),
		printer:     message.NewPrinter(language.English),
	}, nil
}

// Register compiles schemaJSON and stores it under name. Registration happens
// at startup, before the validator is shared.
func (v *SchemaValidator) Register(name, schemaJSON string) error {
	schema, err := compileSchema(name, schemaJSON)
	if err != nil {
		return fmt.Errorf("register schema %s: %w", name, err)
	}
	v.sources[name] = schemaJSON
	v.schemaCache.Add(name, schema)
	return nil
}

// Validate implements Validator.
func (v *SchemaValidator) Validate(name string, body []byte) ([]FieldError, error) {
	schema, err := v.schema(name)
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}

	err = schema.Validate(doc)
	if err == nil {
		return []FieldError{}, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}

	var out []FieldError
	v.collect(ve, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

func (v *SchemaValidator) schema(name string) (*jsonschema.Schema, error) {
	if schema, ok := v.schemaCache.Get(name); ok {
		return schema, nil
	}
	src, ok := v.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	schema, err := compileSchema(name, src)
	if err != nil {
		return nil, err
	}
	v.schemaCache.Add(name, schema)
	return schema, nil
}

// collect flattens the error tree into its leaves.
func (v *SchemaValidator) collect(ve *jsonschema.ValidationError, out *[]FieldError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, FieldError{
			Field:   pointer(ve.InstanceLocation),
			Message: ve.ErrorKind.LocalizedString(v.printer),
		})
		return
	}
	for _, cause := range ve.Causes {
		v.collect(cause, out)
	}
}

func pointer(location []string) string {
	if len(location) == 0 {
		return ""
	}
	return "/" + strings.Join(location, "/")
}

// compileSchema compiles a JSON schema string into a schema object
func compileSchema(name, schemaJSON string) (*jsonschema.Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse schema JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)

	schemaURL := name + ".json"
	if err := compiler.AddResource(schemaURL, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// GetCacheSize returns cache size for monitoring
func (v *SchemaValidator) GetCacheSize() int {
	return v.schemaCache.Len()
}
