package falkordb

import (
	"fmt"
	"strconv"

	"github.com/falkordb/falkordb-mcp/core/domain"
)

// parseQueryReply converts a GRAPH.QUERY reply into a GraphQueryResult.
// Read queries answer [header, rows, stats]; writes may answer [stats] alone.
func parseQueryReply(reply any) (*domain.GraphQueryResult, error) {
	parts, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected GRAPH.QUERY reply type %T", reply)
	}

	result := domain.NewGraphQueryResult()
	switch len(parts) {
	case 0:
		return result, nil
	case 1:
		result.Metadata = stringList(parts[0])
		return result, nil
	case 2:
		return nil, fmt.Errorf("unexpected GRAPH.QUERY reply with %d elements", len(parts))
	}

	header, ok := parts[0].([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected header type %T", parts[0])
	}
	for _, column := range header {
		result.Headers = append(result.Headers, columnName(column))
	}

	rows, ok := parts[1].([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected rows type %T", parts[1])
	}
	for _, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", row)
		}
		out := make([]any, len(cells))
		for i, cell := range cells {
			out[i] = normalize(cell)
		}
		result.Data = append(result.Data, out)
	}

	result.Metadata = stringList(parts[len(parts)-1])
	return result, nil
}

// columnName handles both verbose headers ("name") and compact ones
// ([type, "name"]).
func columnName(column any) string {
	if pair, ok := column.([]any); ok && len(pair) == 2 {
		return toString(pair[1])
	}
	return toString(column)
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return []string{}
		}
		return []string{toString(v)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, toString(item))
	}
	return out
}

// normalize turns driver values into JSON-friendly ones.
func normalize(v any) any {
	switch typed := v.(type) {
	case []byte:
		return string(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[toString(k)] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func toString(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}

// countValue reads the single count cell of a count query. Missing, negative
// or unparseable values count as zero.
func countValue(result *domain.GraphQueryResult) int64 {
	if result == nil || len(result.Data) == 0 || len(result.Data[0]) == 0 {
		return 0
	}

	var n int64
	switch v := result.Data[0][0].(type) {
	case int64:
		n = v
	case int:
		n = int64(v)
	case float64:
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	}
	if n < 0 {
		return 0
	}
	return n
}
