package permission

import (
	"encoding/json"
	"fmt"
)

// Bindings maps a permission name to either a full binding (every object of
// every node type) or a partial binding scoped to specific object ids per
// node type. Used for row-level authorization.
type Bindings map[string]Binding

// Binding is the bound value for a single permission.
type Binding struct {
	// All is true when the permission is bound without object restriction.
	All bool

	// NodeTypes holds the ordered object-id lists per node type when the
	// binding is partial.
	NodeTypes map[string][]string
}

// UnmarshalJSON accepts either the literal true or a node-type to id-list
// mapping, matching the wire shape of the bindings document.
func (b *Binding) UnmarshalJSON(data []byte) error {
	var full bool
	if err := json.Unmarshal(data, &full); err == nil {
		if !full {
			return fmt.Errorf("permission: binding value must be true or an object")
		}
		*b = Binding{All: true}
		return nil
	}

	var partial map[string][]string
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("permission: invalid binding value: %w", err)
	}
	*b = Binding{NodeTypes: partial}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (b Binding) MarshalJSON() ([]byte, error) {
	if b.All {
		return json.Marshal(true)
	}
	return json.Marshal(b.NodeTypes)
}

// IDResult is the outcome of an object-binding lookup.
type IDResult struct {
	// Granted is false when the permission is not bound at all, or is bound
	// but not for the requested node type.
	Granted bool

	// All is true when the binding is unrestricted.
	All bool

	// IDs is the ordered object-id list when the binding is partial. The
	// caller treats this as "bound to exactly these objects".
	IDs []string
}

// CanIDs returns what objects the bindings grant for perm on the given node
// type. Nil bindings deny everything.
func (b Bindings) CanIDs(perm, nodeType string) IDResult {
	binding, ok := b[perm]
	if !ok {
		return IDResult{}
	}

	if binding.All {
		return IDResult{Granted: true, All: true}
	}

	ids, ok := binding.NodeTypes[nodeType]
	if !ok {
		return IDResult{}
	}

	return IDResult{Granted: true, IDs: ids}
}
