package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
)

// buildQuery compiles predicates to JSONB containment checks, which the GIN
// index on fields can serve.
func buildQuery(collection string, preds []docstore.Predicate) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT id, fields, created_at, updated_at FROM documents WHERE collection = $1")
	args := []any{collection}

	contains := func(field string, value any) (string, error) {
		data, err := json.Marshal(map[string]any{field: value})
		if err != nil {
			return "", fmt.Errorf("encoding predicate on %q: %w", field, err)
		}
		args = append(args, string(data))
		return fmt.Sprintf("fields @> $%d::jsonb", len(args)), nil
	}

	for _, p := range preds {
		var clause string
		var err error
		switch p.Op {
		case docstore.OpEqual:
			clause, err = contains(p.Field, p.Value)
		case docstore.OpArrayContains:
			clause, err = contains(p.Field, []any{p.Value})
		case docstore.OpIn:
			values := p.Values()
			if len(values) == 0 {
				clause = "FALSE"
				break
			}
			parts := make([]string, 0, len(values))
			for _, v := range values {
				part, perr := contains(p.Field, v)
				if perr != nil {
					return "", nil, perr
				}
				parts = append(parts, part)
			}
			clause = "(" + strings.Join(parts, " OR ") + ")"
		default:
			return "", nil, fmt.Errorf("unsupported query operator %q", p.Op)
		}
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(clause)
	}

	sb.WriteString(" ORDER BY id")
	return sb.String(), args, nil
}
