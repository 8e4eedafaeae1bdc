// Package authz decides whether an actor may perform an action on a
// resource.  Rules live in an embedded casbin model and policy table; this
// package only maps an actor onto casbin subjects.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/iliyamo/media-catalog/internal/logging"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Resources.
const (
	Catalog = "catalog" // categories, genres, titles
	Review  = "review"
	Comment = "comment"
	Users   = "users"   // user management
	Profile = "profile" // the caller's own record
)

// Actions.
const (
	Read   = "read"
	Write  = "write"
	Create = "create"
	Update = "update"
	Delete = "delete"
	Manage = "manage"
)

// Subjects that are not role names.
const (
	subjectAnonymous = "anonymous"
	subjectSuperuser = "superuser"
	subjectOwner     = "owner"
)

// Actor is the requester as far as authorization is concerned.  The zero
// value is an anonymous requester.
type Actor struct {
	ID            uint64
	Role          string
	Superuser     bool
	Authenticated bool
}

// Anonymous is the actor for requests without credentials.
var Anonymous = Actor{}

// Policy evaluates the embedded rules.  It is safe for concurrent use.
type Policy struct {
	e *casbin.SyncedEnforcer
}

// New builds a Policy from the embedded model and policy table.
func New() (*Policy, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if err := loadPolicy(e, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Policy{e: e}, nil
}

// MustNew is New for program start-up.
func MustNew() *Policy {
	p, err := New()
	if err != nil {
		panic(err)
	}
	return p
}

func loadPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := e.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := e.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// subjects lists every casbin subject the actor speaks for.
func subjects(a Actor, ownerID uint64) []string {
	if !a.Authenticated {
		return []string{subjectAnonymous}
	}
	role := a.Role
	if role == "" {
		role = "user"
	}
	subs := []string{role}
	if a.Superuser {
		subs = append(subs, subjectSuperuser)
	}
	if ownerID != 0 && a.ID == ownerID {
		subs = append(subs, subjectOwner)
	}
	return subs
}

// Allowed reports whether a may perform action on resource.  ownerID is the
// author of the target object, or 0 when the check is not about a
// particular object.  Evaluation errors deny.
func (p *Policy) Allowed(a Actor, resource, action string, ownerID uint64) bool {
	for _, sub := range subjects(a, ownerID) {
		ok, err := p.e.Enforce(sub, resource, action)
		if err != nil {
			logging.Error().Err(err).Str("sub", sub).Str("obj", resource).Str("act", action).Msg("authz enforce failed")
			return false
		}
		if ok {
			return true
		}
	}
	return false
}
