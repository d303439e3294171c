package authclient

import (
	"github.com/simpleviewinc/sv-auth-client/pkg/permission"
)

// AuthUserID links a user document to an identity in an upstream directory.
type AuthUserID struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

// UserDoc is the user document as returned by the remote directory.
type UserDoc struct {
	ID             string       `json:"id"`
	AcctID         string       `json:"acct_id"`
	Firstname      string       `json:"firstname,omitempty"`
	Lastname       string       `json:"lastname,omitempty"`
	Email          string       `json:"email,omitempty"`
	Active         bool         `json:"active,omitempty"`
	AuthUserIDs    []AuthUserID `json:"auth_user_id,omitempty"`
	PermissionJSON string       `json:"permissionJson"`

	// Superuser marks an internal identity exempt from permission checks.
	Superuser bool `json:"sv,omitempty"`
}

// User is a resolved identity: the directory document plus its grant tree
// parsed once at construction. The parsed tree and any object bindings are
// unexported, so serializing a User yields only the original document fields.
type User struct {
	UserDoc

	grant    permission.Grant
	bindings permission.Bindings
}

// NewUser parses doc's permission grant and wraps it as a User. Returns
// permission.ErrMalformedGrant (wrapped) when the grant does not parse.
func NewUser(doc UserDoc) (*User, error) {
	grant, err := permission.ParseGrant([]byte(doc.PermissionJSON))
	if err != nil {
		return nil, err
	}

	return &User{UserDoc: doc, grant: grant}, nil
}

// Can reports whether the user holds every one of the given dot-delimited
// permission paths.
func (u *User) Can(perms []string) bool {
	return u.grant.Can(perms)
}

// CanIDs returns the user's object bindings for perm on the given node type.
// A user without bindings denies everything.
func (u *User) CanIDs(perm, nodeType string) permission.IDResult {
	return u.bindings.CanIDs(perm, nodeType)
}

// SetBindings attaches object bindings fetched after resolution. Bindings are
// the only mutable part of a User.
func (u *User) SetBindings(b permission.Bindings) {
	u.bindings = b
}

// Bindings returns the currently attached object bindings, possibly nil.
func (u *User) Bindings() permission.Bindings {
	return u.bindings
}
