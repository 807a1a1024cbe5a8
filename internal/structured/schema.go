package structured

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
)

type namedSchema struct {
	name   string
	schema map[string]any
}

// schemaCache reflects each output type once
type schemaCache struct {
	reflector *jsonschema.Reflector
	mu        sync.Mutex
	byType    map[reflect.Type]*namedSchema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{
		reflector: &jsonschema.Reflector{
			// Structured-output endpoints want one inline object, no $defs
			DoNotReference: true,
			ExpandedStruct: true,
		},
		byType: make(map[reflect.Type]*namedSchema),
	}
}

func (c *schemaCache) forValue(out any) (*namedSchema, error) {
	t := reflect.TypeOf(out)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("output must be a pointer to a struct, got %T", out)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.byType[t]; ok {
		return s, nil
	}

	raw, err := json.Marshal(c.reflector.Reflect(out))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")

	s := &namedSchema{name: schemaName(t.Elem()), schema: schema}
	c.byType[t] = s
	return s, nil
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// schemaName turns ReviewerOutput into reviewer_output
func schemaName(t reflect.Type) string {
	name := t.Name()
	if name == "" {
		return "structured_output"
	}
	return strings.ToLower(camelBoundary.ReplaceAllString(name, "${1}_${2}"))
}
