package gmp

import (
	"strconv"
	"strings"

	"github.com/danmuck/gmpctl/internal/protocol"
)

// SearchParams narrow a single get_* call. Zero First and Rows are omitted;
// a nil Details leaves the attribute off.
type SearchParams struct {
	Filter      string
	ExtraFilter string
	First       int
	Rows        int
	SortField   string
	SortDesc    bool
	Details     *bool
	// Query is free text appended to Filter.
	Query string
}

// FilterString compiles the filter expression, or "" when nothing is set.
func (p SearchParams) FilterString() string {
	var parts []string
	filter := strings.TrimSpace(p.Filter)
	if query := strings.TrimSpace(p.Query); query != "" {
		if filter != "" {
			filter += " " + query
		} else {
			filter = query
		}
	}
	if filter != "" {
		parts = append(parts, filter)
	}
	if extra := strings.TrimSpace(p.ExtraFilter); extra != "" {
		parts = append(parts, extra)
	}
	if p.First != 0 {
		parts = append(parts, "first="+strconv.Itoa(p.First))
	}
	if p.Rows != 0 {
		parts = append(parts, "rows="+strconv.Itoa(p.Rows))
	}
	if field := strings.TrimSpace(p.SortField); field != "" {
		prefix := ""
		if p.SortDesc {
			prefix = "-"
		}
		parts = append(parts, "sort="+prefix+field)
	}
	return strings.Join(parts, " ")
}

func (p SearchParams) apply(cmd *protocol.Command) *protocol.Command {
	if p.Details != nil {
		cmd.Attr("details", boolFlag(*p.Details))
	}
	if filter := p.FilterString(); filter != "" {
		cmd.Attr("filter", filter)
	}
	return cmd
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
