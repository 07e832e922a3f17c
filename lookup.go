package dynafix

import (
	"sort"
	"strings"
)

// LookupSep separates the steps of a lookup key.
const LookupSep = "__"

// expand turns lookup keys into nested fixtures:
//
//	{"a__b__c": 1, "a__d": 2} => {"a": F({"b": F({"c": 1}), "d": 2})}
//
// Keys sharing a root are merged into one nested fixture. A root given both
// as a plain key and as a lookup key is a configuration error.
func expand(model string, values Values) (Values, error) {
	out := make(Values, len(values))
	nested := make(map[string]Values)
	for _, k := range sortedKeys(values) {
		root, rest, ok := strings.Cut(k, LookupSep)
		if !ok || root == "" || rest == "" {
			out[k] = values[k]
			continue
		}
		if nested[root] == nil {
			nested[root] = make(Values)
		}
		nested[root][rest] = values[k]
	}
	for _, root := range sortedKeys(nested) {
		if _, ok := out[root]; ok {
			return nil, &ConfigurationError{
				Model: model,
				Field: root,
				Msg:   "field is configured both directly and through a lookup",
			}
		}
		sub, err := expand(model, nested[root])
		if err != nil {
			return nil, err
		}
		out[root] = F(sub)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
