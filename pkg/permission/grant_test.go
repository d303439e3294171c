package permission_test

import (
	"testing"

	"github.com/simpleviewinc/sv-auth-client/pkg/permission"
	"github.com/stretchr/testify/require"
)

func TestParseGrant(t *testing.T) {
	t.Parallel()

	t.Run("valid document", func(t *testing.T) {
		grant, err := permission.ParseGrant([]byte(`{"cms":{"nav":{"write":true}}}`))
		require.NoError(t, err)
		require.NotNil(t, grant)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := permission.ParseGrant([]byte(`{`))
		require.ErrorIs(t, err, permission.ErrMalformedGrant)
	})

	t.Run("non-object root", func(t *testing.T) {
		_, err := permission.ParseGrant([]byte(`true`))
		require.ErrorIs(t, err, permission.ErrMalformedGrant)
	})
}

func TestGrantCan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		doc   string
		perms []string
		want  bool
	}{
		{
			name:  "terminal leaf granted",
			doc:   `{"cms":{"nav":{"write":true}}}`,
			perms: []string{"cms.nav.write"},
			want:  true,
		},
		{
			name:  "any denied path denies the whole check",
			doc:   `{"cms":{"nav":{"write":true}}}`,
			perms: []string{"cms.nav.write", "crm"},
			want:  false,
		},
		{
			name:  "non-leaf match at final segment denies",
			doc:   `{"cms":{"nav":{"write":true}}}`,
			perms: []string{"cms"},
			want:  false,
		},
		{
			name:  "short-circuit grant through a true ancestor",
			doc:   `{"cms":true}`,
			perms: []string{"cms.nav.write"},
			want:  true,
		},
		{
			name:  "absent key denies",
			doc:   `{"cms":{"nav":{"write":true}}}`,
			perms: []string{"cms.nav.read"},
			want:  false,
		},
		{
			name:  "false leaf denies",
			doc:   `{"cms":{"nav":{"write":false}}}`,
			perms: []string{"cms.nav.write"},
			want:  false,
		},
		{
			name:  "path longer than granted tree denies",
			doc:   `{"cms":{"nav":{"write":false}}}`,
			perms: []string{"cms.nav.write.deeper"},
			want:  false,
		},
		{
			name:  "non-boolean leaf value denies",
			doc:   `{"cms":{"nav":"write"}}`,
			perms: []string{"cms.nav.write"},
			want:  false,
		},
		{
			name:  "empty perm list is granted",
			doc:   `{}`,
			perms: nil,
			want:  true,
		},
		{
			name:  "multiple granted paths",
			doc:   `{"cms":{"nav":{"write":true,"read":true}},"crm":true}`,
			perms: []string{"cms.nav.write", "cms.nav.read", "crm.anything"},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := permission.ParseGrant([]byte(tt.doc))
			require.NoError(t, err)
			require.Equal(t, tt.want, grant.Can(tt.perms))
		})
	}
}

func TestGrantCanNilGrant(t *testing.T) {
	t.Parallel()

	var grant permission.Grant
	require.False(t, grant.Can([]string{"cms"}))
	require.True(t, grant.Can(nil))
}
