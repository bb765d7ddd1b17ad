// Package extract finds http(s) URLs inside arbitrarily nested content.
package extract

import "regexp"

// urlPattern matches http(s) URLs up to whitespace or one of <>"{}|\^`[].
// Whitespace includes Unicode spaces such as NBSP, U+2000-U+200A, U+3000 and
// the BOM, not only ASCII.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s\p{Z}\x{0B}\x{85}\x{FEFF}<>"{}|\\^` + "`" + `\[\]]+`)

// URLs returns every distinct URL found in the string leaves of v, in the
// order they are first seen. Equality is exact string equality.
func URLs(v Value) []string {
	seen := make(map[string]struct{})
	urls := []string{}

	Walk(v, func(s string) {
		for _, u := range urlPattern.FindAllString(s, -1) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	})

	return urls
}

// Walk calls visit for every string leaf of v, depth first.
func Walk(v Value, visit func(string)) {
	switch v.kind {
	case KindString:
		visit(v.str)
	case KindSequence:
		for _, item := range v.items {
			Walk(item, visit)
		}
	case KindMapping:
		for _, f := range v.fields {
			Walk(f.Value, visit)
		}
	}
}
