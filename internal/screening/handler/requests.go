package handler

import (
	"fmt"
	"strings"

	dErrors "screener/pkg/domain-errors"
	pstrings "screener/pkg/platform/strings"
)

// nameFields are tried in order on every object-shaped entity record.
var nameFields = []string{"name", "entity", "company", "organization", "id"}

// CheckRequest is the normalized form of a POST /check body.
type CheckRequest struct {
	Entities []string
	// Single is set when the body named exactly one entity through the name,
	// entity or id field; the response then uses the single-entity envelope.
	Single bool
}

// ParseEntities normalizes every accepted request shape into an ordered,
// de-duplicated entity list:
//
//	{"name": "..."} {"entity": "..."} {"company": "..."} {"organization": "..."}
//	{"entity": {"name": "...", "type": "..."}} {"id": "..."}
//	["...", {"company": "..."}]
//	{"queries": [...]} {"entities": [...]} {"ids": [...]}
func ParseEntities(body any, maxEntities int) (*CheckRequest, error) {
	var (
		entities []string
		single   bool
	)

	switch v := body.(type) {
	case []any:
		entities = fromList(v)
	case map[string]any:
		entities, single = fromObject(v)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON object or array")
	}

	entities = pstrings.DedupeAndTrim(entities)
	if len(entities) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "No valid entities found in request")
	}
	if maxEntities > 0 && len(entities) > maxEntities {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("Maximum %d entities allowed per request", maxEntities))
	}
	return &CheckRequest{Entities: entities, Single: single && len(entities) == 1}, nil
}

func fromObject(obj map[string]any) ([]string, bool) {
	if name, ok := stringField(obj, "name"); ok {
		return one(name), true
	}
	if name, ok := stringField(obj, "entity"); ok {
		return one(name), true
	}
	if name, ok := stringField(obj, "company"); ok {
		return one(name), false
	}
	if name, ok := stringField(obj, "organization"); ok {
		return one(name), false
	}
	if nested, ok := obj["entity"].(map[string]any); ok {
		name, _ := stringField(nested, "name")
		return one(name), true
	}
	if id, ok := stringField(obj, "id"); ok {
		return one(id), true
	}
	for _, key := range []string{"queries", "entities", "ids"} {
		if list, ok := obj[key].([]any); ok {
			return fromList(list), false
		}
	}
	return nil, false
}

func fromList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, strings.TrimSpace(v))
		case map[string]any:
			for _, field := range nameFields {
				if name, ok := stringField(v, field); ok {
					out = append(out, name)
					break
				}
			}
		}
	}
	return out
}

func stringField(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func one(name string) []string {
	if name == "" {
		return nil
	}
	return []string{name}
}
