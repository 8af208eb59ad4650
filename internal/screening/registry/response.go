package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"screener/internal/screening/models"
)

// Total is the registry's result count. The API sends either a bare number
// or an object with a "value" field.
type Total int

func (t *Total) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			Value int `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*t = Total(obj.Value)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Total(n)
	return nil
}

type searchResponse struct {
	Results []entityRecord `json:"results"`
	Total   Total          `json:"total"`
}

type entityRecord struct {
	ID         string           `json:"id"`
	Caption    string           `json:"caption"`
	Schema     string           `json:"schema"`
	Datasets   []string         `json:"datasets"`
	Properties map[string][]any `json:"properties"`
}

func (r entityRecord) prop(name string) []string {
	raw := r.Properties[name]
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		// nested entities arrive as objects; only scalar values are kept
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func (r entityRecord) first(names ...string) string {
	for _, n := range names {
		if vals := r.prop(n); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func (r entityRecord) toHit() models.RegistryHit {
	name := r.Caption
	if name == "" {
		name = r.first("name")
	}
	return models.RegistryHit{
		ID:        r.ID,
		Name:      name,
		Schema:    r.Schema,
		Countries: r.prop("country"),
		Gender:    r.first("gender"),
		BirthDate: r.first("birthDate"),
		Notes:     r.first("notes", "description", "summary"),
		Datasets:  r.Datasets,
		Topics:    r.prop("topics"),
		SourceURL: r.first("sourceUrl", "website"),
	}
}

// parseSearchResponse decodes a collection search body into hits and the
// reported total.
func parseSearchResponse(status int, body []byte) ([]models.RegistryHit, int, error) {
	if status != http.StatusOK {
		return nil, 0, classifyStatus(status)
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, NewProviderError(ErrorBadData, "malformed search response", err)
	}
	hits := make([]models.RegistryHit, 0, len(resp.Results))
	for _, rec := range resp.Results {
		hits = append(hits, rec.toHit())
	}
	return hits, int(resp.Total), nil
}

// parseEntityResponse decodes a direct-by-ID body into a single hit.
func parseEntityResponse(status int, body []byte) (models.RegistryHit, error) {
	if status != http.StatusOK {
		return models.RegistryHit{}, classifyStatus(status)
	}
	var rec entityRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return models.RegistryHit{}, NewProviderError(ErrorBadData, "malformed entity response", err)
	}
	if rec.ID == "" {
		return models.RegistryHit{}, NewProviderError(ErrorBadData, fmt.Sprintf("entity response without id (status %d)", status), nil)
	}
	return rec.toHit(), nil
}
