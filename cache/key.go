package cache

// Key addresses one cached collection. Scope names the collection kind
// ("tasks", "notifications", "users"); Params is the canonical serialization
// of the query that produced it.
type Key struct {
	Scope  string
	Params string
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Scope
	}
	return k.Scope + "?" + k.Params
}

// Pattern selects a set of keys for invalidation, cancellation and
// optimistic updates.
type Pattern struct {
	scope  string
	params string
	exact  bool
	all    bool
}

// All matches every key.
func All() Pattern { return Pattern{all: true} }

// Scope matches every key of one collection kind, whatever its params.
func Scope(scope string) Pattern { return Pattern{scope: scope} }

// Exact matches a single key.
func Exact(k Key) Pattern { return Pattern{scope: k.Scope, params: k.Params, exact: true} }

func (p Pattern) Match(k Key) bool {
	switch {
	case p.all:
		return true
	case p.exact:
		return k.Scope == p.scope && k.Params == p.params
	default:
		return k.Scope == p.scope
	}
}

func (p Pattern) String() string {
	switch {
	case p.all:
		return "*"
	case p.exact:
		return Key{Scope: p.scope, Params: p.params}.String()
	default:
		return p.scope + "/*"
	}
}
