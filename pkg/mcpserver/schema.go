package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/schema"
)

// InputSchema builds the tool input schema for kind from the route table.
// Plain kinds take the path as an enum; body kinds take an "input" object
// whose requestBody contract is selected by the path.
func InputSchema(kind gateway.Kind) (map[string]any, error) {
	paths := gateway.Paths(kind)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s - no routes for %s", logPrefix, kind)
	}

	if !kind.NeedsBody() {
		props := map[string]any{
			gateway.ArgPath: map[string]any{"type": "string", "enum": paths},
		}
		required := []string{gateway.ArgPath}
		switch kind {
		case gateway.KindGetID:
			props[gateway.ArgID] = map[string]any{"type": "string", "minLength": 1}
			required = append(required, gateway.ArgID)
		case gateway.KindDeleteParam:
			props[gateway.ArgParam] = map[string]any{"type": "string", "minLength": 1}
			required = append(required, gateway.ArgParam)
		}
		return objectSchema(props, required), nil
	}

	variants := make([]any, 0, len(paths))
	for _, p := range paths {
		route, _ := gateway.Lookup(kind, p)
		body := map[string]any{"type": "object"}
		if route.Schema != "" {
			doc, err := schema.Document(route.Schema)
			if err != nil {
				return nil, fmt.Errorf("%s - failed to load %s: %w", logPrefix, route.Schema, err)
			}
			body = doc
		}

		props := map[string]any{
			gateway.ArgPath:        map[string]any{"type": "string", "const": p},
			gateway.ArgRequestBody: body,
		}
		required := []string{gateway.ArgPath, gateway.ArgRequestBody}
		if kind.NeedsID() {
			props[gateway.ArgID] = map[string]any{"type": "string", "minLength": 1}
			required = append(required, gateway.ArgID)
		}
		variants = append(variants, objectSchema(props, required))
	}

	return objectSchema(map[string]any{
		gateway.ArgInput: map[string]any{"oneOf": variants},
	}, []string{gateway.ArgInput}), nil
}

// RawInputSchema is InputSchema encoded as JSON.
func RawInputSchema(kind gateway.Kind) (json.RawMessage, error) {
	s, err := InputSchema(kind)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode schema for %s: %w", logPrefix, kind, err)
	}
	return data, nil
}

func objectSchema(props map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}
