package chronicle

import "sync"

// attrNameIntern caches interned attribute-name strings so repeated
// resolution of the same name (common across a long-running handle)
// doesn't keep allocating fresh strings. Mirrors the teacher's
// sync.Map-backed KeywordIntern in datalog/intern.go, narrowed to
// plain strings since this domain has no separate Keyword type.
type attrNameIntern struct {
	cache sync.Map // map[string]*string
}

var globalAttrNameIntern = &attrNameIntern{}

// InternAttributeName returns a canonical *string for name, sharing
// storage across all callers that intern the same name.
func InternAttributeName(name string) *string {
	if v, ok := globalAttrNameIntern.cache.Load(name); ok {
		return v.(*string)
	}
	n := name
	actual, _ := globalAttrNameIntern.cache.LoadOrStore(name, &n)
	return actual.(*string)
}
