package gmp

import (
	"context"
	"fmt"

	"github.com/danmuck/gmpctl/internal/observability"
	"github.com/danmuck/gmpctl/internal/protocol"
	"github.com/danmuck/gmpctl/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

// PageSize is the window used once an all-rows request is refused.
const PageSize = 200

const allRowsFilter = "rows=-1"

// Mapper turns the rows of one response into values.
type Mapper[T any] func(*CommandResult) []T

// FetchAll returns every row of kind. It asks for all rows in one call and,
// if the manager refuses, walks first/rows pages until a short page. A
// refused page fails the whole retrieval with protocol.ErrPaginationFailure.
// LastError is cleared when the paged walk completes.
func FetchAll[T any](ctx context.Context, s *Session, kind schema.Kind, mapRows Mapper[T]) ([]T, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	res, err := s.execute(ctx, listCommand(kind, allRowsFilter))
	observability.RecordBulkCall(kind.Command, false)
	if err != nil {
		return nil, err
	}
	if res.OK {
		return mapRows(res), nil
	}
	log.Info().Str("command", kind.Command).Str("status", res.Status.RawCode).Msg("gmp.FetchAll all-rows request refused, paging")

	var out []T
	for first := 1; ; first += PageSize {
		filter := fmt.Sprintf("first=%d rows=%d", first, PageSize)
		page, err := s.execute(ctx, listCommand(kind, filter))
		observability.RecordBulkCall(kind.Command, true)
		if err != nil {
			return nil, err
		}
		if !page.OK {
			return nil, fmt.Errorf("%w: %s %s: %w", protocol.ErrPaginationFailure, kind.Name, filter, page.Err())
		}
		out = append(out, mapRows(page)...)
		if len(page.Root.Entities(kind.Entity)) < PageSize {
			s.setLastError("")
			return out, nil
		}
	}
}

func listCommand(kind schema.Kind, filter string) *protocol.Command {
	return protocol.NewCommand(kind.Command).Attr("filter", filter)
}
