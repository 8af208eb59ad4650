package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery indicates the entity string was blank after trimming.
var ErrEmptyQuery = errors.New("entity query is empty")

// EntityQuery is the normalized subject of a check: a person or company
// name, or a registry identifier. Immutable once parsed.
type EntityQuery struct {
	value string
}

// ParseEntityQuery trims raw and rejects blank input.
func ParseEntityQuery(raw string) (EntityQuery, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return EntityQuery{}, ErrEmptyQuery
	}
	return EntityQuery{value: v}, nil
}

// MustEntityQuery panics on invalid input. Tests only.
func MustEntityQuery(raw string) EntityQuery {
	q, err := ParseEntityQuery(raw)
	if err != nil {
		panic(err)
	}
	return q
}

func (q EntityQuery) String() string {
	return q.value
}

func (q EntityQuery) IsZero() bool {
	return q.value == ""
}
