// Package normalize turns loosely shaped upstream records into typed orders.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sales-dashboard/internal/types"
)

// Candidate key-paths, most specific first. Dots descend into nested objects.
var (
	IDPaths       = []string{"id", "numero"}
	NumberPaths   = []string{"numero", "id"}
	EmissionPaths = []string{"dataEmissao", "data.emissao", "data"}
	StatusPaths   = []string{"situacao.id", "idSituacao", "geral.situacao.id"}
	VendorPaths   = []string{"vendedor.id", "idVendedor", "geral.vendedor.id"}
	FreightPaths  = []string{"transporte.frete", "frete"}
	NotesPaths    = []string{"observacoes", "obs"}
)

// Lookup returns the value of the first candidate path that is present and
// non-empty. nil and "" count as empty.
func Lookup(rec types.RawRecord, paths ...string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		v, ok := walk(map[string]any(rec), p)
		if ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

// LookupString is Lookup rendered as text
func LookupString(rec types.RawRecord, paths ...string) (string, bool) {
	v, ok := Lookup(rec, paths...)
	if !ok {
		return "", false
	}
	return String(v), true
}

func walk(cur map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var v any = cur
	for _, part := range parts {
		m, ok := asMap(v)
		if !ok {
			return nil, false
		}
		v, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case types.RawRecord:
		return m, true
	}
	return nil, false
}

func isEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	}
	return false
}

// String renders a scalar JSON value without float exponent noise
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// ParseInt parses an integer code such as a status id
func ParseInt(v any) (int, bool) {
	s := strings.TrimSpace(String(v))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// RecordKey is the dedup identity of a raw record: id, else number
func RecordKey(rec types.RawRecord) (string, bool) {
	return LookupString(rec, IDPaths...)
}

// objects returns the elements of a JSON array that are objects
func objects(v any) []types.RawRecord {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]types.RawRecord, 0, len(list))
	for _, el := range list {
		if m, ok := asMap(el); ok {
			out = append(out, m)
		}
	}
	return out
}
