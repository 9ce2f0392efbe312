package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidBody is returned when a request body cannot be decoded into a Map.
var ErrInvalidBody = errors.New("params: invalid request body")

// FromValues builds a Map from form or query values, expanding bracket keys
// into nested maps: "user[username]=x" becomes {"user": {"username": "x"}}.
// A key submitted more than once, or ending in "[]", becomes a []any.
func FromValues(values url.Values) Map {
	if values == nil {
		return nil
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := make(Map, len(values))
	for _, key := range keys {
		vals := values[key]
		if len(vals) == 0 {
			continue
		}
		if !strings.Contains(key, "[") || strings.HasPrefix(key, "[") {
			m[key] = flatten(vals, false)
			continue
		}

		path := ParsePath(key)
		appendList := path[len(path)-1] == ""
		if appendList {
			path = path[:len(path)-1]
		}
		m.set(path, flatten(vals, appendList))
	}
	return m
}

// FromJSON decodes a JSON object body. An empty body yields a nil Map.
// Numbers are kept as json.Number so identifiers keep their exact text.
func FromJSON(r io.Reader) (Map, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var m Map
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return m, nil
}

func (m Map) set(path Path, value any) {
	cur := m
	for i, key := range path {
		if i == len(path)-1 {
			if _, exists := cur[key]; !exists {
				cur[key] = value
			}
			return
		}
		next, ok := cur[key].(Map)
		if !ok {
			if _, exists := cur[key]; exists {
				// a scalar already owns this key
				return
			}
			next = Map{}
			cur[key] = next
		}
		cur = next
	}
}

func flatten(vals []string, list bool) any {
	if len(vals) == 1 && !list {
		return vals[0]
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
