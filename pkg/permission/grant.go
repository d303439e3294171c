package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedGrant reports a grant document that could not be parsed.
var ErrMalformedGrant = errors.New("permission: malformed grant document")

// Grant is a nested boolean permission tree. Leaves are booleans and internal
// nodes are further trees keyed by permission segment name. A true value at
// any level grants every permission path through it.
type Grant map[string]any

// ParseGrant parses a serialized grant document. The root must be a JSON
// object; anything else is a malformed document.
func ParseGrant(data []byte) (Grant, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedGrant, err)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: root is not an object", ErrMalformedGrant)
	}

	return Grant(obj), nil
}

// Can reports whether every requested permission path is granted. A single
// denied path denies the whole check. Absent or malformed branches resolve to
// false, never an error.
func (g Grant) Can(perms []string) bool {
	for _, perm := range perms {
		if !g.canOne(perm) {
			return false
		}
	}
	return true
}

func (g Grant) canOne(perm string) bool {
	terms := strings.Split(perm, ".")
	current := map[string]any(g)

	for i, term := range terms {
		value, ok := current[term]
		if !ok {
			// hit the end of the granted tree
			return false
		}

		if b, isBool := value.(bool); isBool {
			// true short-circuits the remaining segments; false is a dead leaf
			return b
		}

		sub, isTree := value.(map[string]any)
		if !isTree || i == len(terms)-1 {
			// a non-leaf match at the final segment is a deny, the caller
			// must name a terminal granted permission
			return false
		}

		current = sub
	}

	return false
}
