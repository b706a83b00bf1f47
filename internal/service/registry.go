package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
)

// RegistryLookup checks entity identifiers against known-entity records.
type RegistryLookup interface {
	Lookup(ctx context.Context, query string, fuzzy bool) (*RegistryResult, error)
}

// RegistryMatch is one record returned by the registry service.
type RegistryMatch struct {
	// Name is the registered entity name.
	Name string `json:"name"`

	// Identifier is the matched identifier (registration number, PAN, UPI).
	Identifier string `json:"identifier,omitempty"`

	// Status is the registry's status string for the entity, e.g.
	// "ACTIVE", "STRUCK_OFF". Passed through verbatim.
	Status string `json:"status,omitempty"`
}

// RegistryResult summarizes a registry lookup.
type RegistryResult struct {
	// Query is the normalized query that was sent.
	Query string `json:"query"`

	// Kind is the parameter the query was classified as.
	Kind QueryKind `json:"kind"`

	// Count is the number of matching records the registry reported.
	Count int `json:"count"`

	// Matches are the returned records, possibly fewer than Count.
	Matches []RegistryMatch `json:"matches,omitempty"`
}

// Found reports whether the lookup matched any record.
func (r *RegistryResult) Found() bool {
	return r.Count > 0
}

// RegistryClient talks to the entity registry lookup service.
type RegistryClient struct {
	endpoint string
	cfg      *clientConfig
}

// NewRegistryClient creates a registry client for the given endpoint URL.
func NewRegistryClient(endpoint string, opts ...Option) *RegistryClient {
	return &RegistryClient{
		endpoint: endpoint,
		cfg:      newClientConfig(opts...),
	}
}

// Lookup classifies the query into the right registry parameter, performs
// the GET, and summarizes the response. The registry's match record shape
// is loose; name, identifier, and status are extracted when present and
// everything else is ignored.
func (c *RegistryClient) Lookup(ctx context.Context, query string, fuzzy bool) (*RegistryResult, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	kind, normalized := ClassifyQuery(query)

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid registry endpoint: %w", err)
	}
	q := u.Query()
	q.Set(string(kind), normalized)
	if fuzzy {
		q.Set("fuzzy", "1")
	}
	u.RawQuery = q.Encode()

	body, err := c.cfg.getJSON(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("registry service: %w", err)
	}

	result := &RegistryResult{
		Query: normalized,
		Kind:  kind,
		Count: int(gjson.GetBytes(body, "count").Int()),
	}
	gjson.GetBytes(body, "matches").ForEach(func(_, m gjson.Result) bool {
		match := RegistryMatch{
			Name:       m.Get("name").String(),
			Identifier: m.Get("identifier").String(),
			Status:     m.Get("status").String(),
		}
		if match.Identifier == "" {
			// Some registry deployments key the identifier by its kind.
			match.Identifier = m.Get(string(kind)).String()
		}
		result.Matches = append(result.Matches, match)
		return true
	})

	return result, nil
}
