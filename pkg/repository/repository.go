package repository

import (
	"context"
	"errors"

	"github.com/matst80/slask-fordon/pkg/types"
)

var ErrUnknownField = errors.New("unknown field")

// Repository is the read side of the content repository. Implementations
// must be safe for concurrent use, queries have no side effects.
type Repository interface {
	Query(ctx context.Context, q types.QueryDescriptor) (*types.ResultPage, error)
	// ValueCounts counts the matches of q grouped by the value of field.
	// Paging of q is ignored.
	ValueCounts(ctx context.Context, q types.QueryDescriptor, field types.Field) (map[string]int, error)
}

// Writer is implemented by repositories fed from the inventory change stream.
type Writer interface {
	Upsert(items ...types.Item)
	Delete(ids ...string)
}
