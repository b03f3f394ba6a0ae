package falkordb

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidParamName reports whether name can be used as a Cypher parameter.
func ValidParamName(name string) bool {
	return identifierPattern.MatchString(name)
}

// BuildQuery prefixes query with a CYPHER parameter header. Parameters are
// emitted in key order so the same input always yields the same command.
func BuildQuery(query string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return query, nil
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		if !ValidParamName(key) {
			return "", fmt.Errorf("invalid parameter name %q", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("CYPHER")
	for _, key := range keys {
		lit, err := literal(params[key])
		if err != nil {
			return "", fmt.Errorf("parameter %q: %w", key, err)
		}
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(lit)
	}
	b.WriteByte(' ')
	b.WriteString(query)
	return b.String(), nil
}

func literal(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return quote(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case json.Number:
		if _, err := v.Float64(); err != nil {
			return "", fmt.Errorf("invalid number %q", v.String())
		}
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return formatFloat(v)
	case []any:
		return listLiteral(len(v), func(i int) any { return v[i] })
	case map[string]any:
		return mapLiteral(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return formatFloat(rv.Float())
	case reflect.Slice, reflect.Array:
		return listLiteral(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return "", fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return mapLiteral(m)
	}
	return "", fmt.Errorf("unsupported parameter type %T", value)
}

func formatFloat(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("non-finite number %v", v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

func listLiteral(n int, at func(int) any) (string, error) {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		lit, err := literal(at(i))
		if err != nil {
			return "", err
		}
		parts[i] = lit
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

func mapLiteral(m map[string]any) (string, error) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		lit, err := literal(m[key])
		if err != nil {
			return "", err
		}
		name := key
		if !ValidParamName(key) {
			name = "`" + strings.ReplaceAll(key, "`", "``") + "`"
		}
		parts[i] = name + ": " + lit
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
