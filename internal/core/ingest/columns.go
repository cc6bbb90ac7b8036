package ingest

import (
	"fmt"

	"github.com/agenthands/ontograph/internal/core/errs"
)

type Endpoint string

const (
	From Endpoint = "from"
	To   Endpoint = "to"
)

// Alias names an extra column that may hold one endpoint of a relationship.
type Alias struct {
	Relationship string
	Endpoint     Endpoint
	Column       string
}

// DefaultAliases covers the column names the bundled datasets use.
func DefaultAliases() []Alias {
	return []Alias{
		{Relationship: "CALL", Endpoint: From, Column: "from_phone"},
		{Relationship: "CALL", Endpoint: To, Column: "to_phone"},
		{Relationship: "MESSAGE", Endpoint: From, Column: "from_phone"},
		{Relationship: "MESSAGE", Endpoint: To, Column: "to_phone"},
		{Relationship: "TRANSFER", Endpoint: From, Column: "from_account"},
		{Relationship: "TRANSFER", Endpoint: To, Column: "to_account"},
		{Relationship: "DOC_MENTIONS_ENTITY", Endpoint: From, Column: "doc_id"},
	}
}

// ColumnResolver finds the column holding a relationship endpoint's key. The
// order tried is: aliases, "<endpoint>_<key>", then the bare key.
type ColumnResolver struct {
	aliases map[string]map[Endpoint][]string
}

// NewColumnResolver builds a resolver from configured aliases, which are tried
// before the defaults.
func NewColumnResolver(configured []Alias) *ColumnResolver {
	c := &ColumnResolver{aliases: make(map[string]map[Endpoint][]string)}
	for _, a := range append(append([]Alias{}, configured...), DefaultAliases()...) {
		byEnd, ok := c.aliases[a.Relationship]
		if !ok {
			byEnd = make(map[Endpoint][]string)
			c.aliases[a.Relationship] = byEnd
		}
		byEnd[a.Endpoint] = appendUnique(byEnd[a.Endpoint], a.Column)
	}
	return c
}

// Candidates lists the columns tried for one endpoint, in priority order.
func (c *ColumnResolver) Candidates(relationship string, end Endpoint, key string) []string {
	var out []string
	for _, col := range c.aliases[relationship][end] {
		out = appendUnique(out, col)
	}
	out = appendUnique(out, string(end)+"_"+key)
	return appendUnique(out, key)
}

// Resolve returns the first candidate column that has a value in row.
func (c *ColumnResolver) Resolve(relationship string, end Endpoint, key string, row map[string]string) (string, string, error) {
	for _, col := range c.Candidates(relationship, end, key) {
		if v, ok := row[col]; ok {
			return col, v, nil
		}
	}
	return "", "", fmt.Errorf("%w: no %s column for %s (key %s)", errs.ErrResolutionAmbiguity, end, relationship, key)
}

// ResolvePair resolves both endpoints and rejects rows where both would be read
// from the same column.
func (c *ColumnResolver) ResolvePair(relationship, fromKey, toKey string, row map[string]string) (fromCol, fromVal, toCol, toVal string, err error) {
	fromCol, fromVal, err = c.Resolve(relationship, From, fromKey, row)
	if err != nil {
		return
	}
	toCol, toVal, err = c.Resolve(relationship, To, toKey, row)
	if err != nil {
		return
	}
	if fromCol == toCol {
		err = fmt.Errorf("%w: both endpoints of %s resolve to column %q", errs.ErrResolutionAmbiguity, relationship, fromCol)
	}
	return
}

func appendUnique(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}
