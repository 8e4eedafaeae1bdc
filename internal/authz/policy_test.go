package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyMatrix(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	const author = 7
	var (
		anon      = Anonymous
		owner     = Actor{ID: author, Role: "user", Authenticated: true}
		stranger  = Actor{ID: 8, Role: "user", Authenticated: true}
		moderator = Actor{ID: 9, Role: "moderator", Authenticated: true}
		admin     = Actor{ID: 10, Role: "admin", Superuser: true, Authenticated: true}
		// superuser flag without the admin role
		superuser = Actor{ID: 11, Role: "user", Superuser: true, Authenticated: true}
	)

	cases := []struct {
		name     string
		actor    Actor
		resource string
		action   string
		want     bool
	}{
		{"anon reads catalog", anon, Catalog, Read, true},
		{"anon reads reviews", anon, Review, Read, true},
		{"anon reads comments", anon, Comment, Read, true},
		{"anon cannot write catalog", anon, Catalog, Write, false},
		{"anon cannot create review", anon, Review, Create, false},
		{"anon cannot manage profile", anon, Profile, Manage, false},

		{"user cannot write catalog", stranger, Catalog, Write, false},
		{"moderator cannot write catalog", moderator, Catalog, Write, false},
		{"admin writes catalog", admin, Catalog, Write, true},
		{"superuser writes catalog", superuser, Catalog, Write, true},

		{"user creates review", stranger, Review, Create, true},
		{"user creates comment", stranger, Comment, Create, true},
		{"user manages own profile", stranger, Profile, Manage, true},

		{"owner updates review", owner, Review, Update, true},
		{"owner deletes review", owner, Review, Delete, true},
		{"owner updates comment", owner, Comment, Update, true},
		{"stranger cannot update review", stranger, Review, Update, false},
		{"stranger cannot delete comment", stranger, Comment, Delete, false},
		{"moderator cannot update review", moderator, Review, Update, false},
		{"moderator deletes review", moderator, Review, Delete, true},
		{"moderator deletes comment", moderator, Comment, Delete, true},
		{"admin updates review", admin, Review, Update, true},
		{"admin deletes comment", admin, Comment, Delete, true},
		{"superuser updates comment", superuser, Comment, Update, true},
		{"anon cannot delete review", anon, Review, Delete, false},

		{"user cannot manage users", stranger, Users, Manage, false},
		{"moderator cannot manage users", moderator, Users, Manage, false},
		{"superuser manages users", superuser, Users, Manage, true},
		{"admin role alone cannot manage users", Actor{ID: 12, Role: "admin", Authenticated: true}, Users, Manage, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Allowed(tc.actor, tc.resource, tc.action, author))
		})
	}
}

func TestOwnerRequiresAuthentication(t *testing.T) {
	p := MustNew()
	// an anonymous actor never becomes the owner, even when ids collide
	assert.False(t, p.Allowed(Actor{ID: 0}, Review, Update, 0))
	assert.False(t, p.Allowed(Actor{ID: 3}, Review, Update, 3))
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, []string{"anonymous"}, subjects(Anonymous, 1))
	assert.Equal(t, []string{"user"}, subjects(Actor{ID: 2, Authenticated: true}, 1))
	assert.Equal(t, []string{"admin", "superuser", "owner"},
		subjects(Actor{ID: 1, Role: "admin", Superuser: true, Authenticated: true}, 1))
	assert.Equal(t, []string{"user"}, subjects(Actor{ID: 1, Role: "user", Authenticated: true}, 0))
}
