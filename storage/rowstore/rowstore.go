// Package rowstore defines the generic table-oriented persistence port the
// sync core talks to. Adapters live in the subpackages; the core never sees
// anything beyond select/upsert/delete by primary key.
package rowstore

import (
	"context"
	"encoding/json"
)

// Filter is an equality (or negated equality) predicate on one column.
type Filter struct {
	Column string
	Value  interface{}
	Not    bool
}

type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

type Query struct {
	Filter *Filter
	Order  *Ordering
}

// Client is the remote row store contract. Rows travel as raw JSON objects;
// entity shaping happens in core/record. Identifier assignment policy is the
// store's: some tables hand out uuid strings, others numeric serials.
type Client interface {
	Select(ctx context.Context, table string, q Query) ([]json.RawMessage, error)
	Upsert(ctx context.Context, table string, row interface{}) error
	Delete(ctx context.Context, table string, f Filter) error
}
