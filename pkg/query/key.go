package query

import (
	"fmt"
	"strings"
)

// Key identifies a cached query: a name plus parameters. A key with fewer
// parameters acts as a prefix of every key with the same name and more parameters.
type Key struct {
	Name   string
	Params []string
}

// NewKey builds a key; each parameter is formatted with fmt.Sprint.
func NewKey(name string, params ...any) Key {
	key := Key{Name: name}

	for _, p := range params {
		key.Params = append(key.Params, fmt.Sprint(p))
	}

	return key
}

// String is the map key used by the cache, e.g. "board-tasks/7".
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Name
	}

	return k.Name + "/" + strings.Join(k.Params, "/")
}

// HasPrefix reports whether prefix has the same name and its params lead k's params.
func (k Key) HasPrefix(prefix Key) bool {
	if k.Name != prefix.Name || len(prefix.Params) > len(k.Params) {
		return false
	}

	for i, p := range prefix.Params {
		if k.Params[i] != p {
			return false
		}
	}

	return true
}

// Equal reports whether both keys have the same name and params.
func (k Key) Equal(other Key) bool {
	return len(k.Params) == len(other.Params) && k.HasPrefix(other)
}
