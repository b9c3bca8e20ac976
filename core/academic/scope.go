package academic

import (
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

// QuerySpec is a declarative filter restricting a read to exactly the
// records the actor is authorized to see. Zero-valued fields are
// unrestricted. An Empty spec means the actor has no scope configured:
// repositories must return an empty result set without ever issuing the
// query.
type QuerySpec struct {
	Empty    bool
	Branch   string   // equality
	Semester string   // equality
	Branches []string // membership ("in")
}

// IsUnrestricted reports whether the spec imposes no filter at all.
func (qs QuerySpec) IsUnrestricted() bool {
	return !qs.Empty && qs.Branch == "" && qs.Semester == "" && len(qs.Branches) == 0
}

// Matches applies the spec's predicates in-process. Repositories backed by
// a real query engine push the same predicates down instead.
func (qs QuerySpec) Matches(branch, semester string) bool {
	if qs.Empty {
		return false
	}
	if qs.Branch != "" && qs.Branch != branch {
		return false
	}
	if qs.Semester != "" && qs.Semester != semester {
		return false
	}
	if len(qs.Branches) > 0 {
		var found bool
		for _, b := range qs.Branches {
			if b == branch {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ScopedQuery builds the minimal filter returning exactly the records the
// actor may see:
//
//	student -> branch = own AND semester = own
//	faculty -> branch IN assigned set
//	admin   -> unrestricted
//
// An actor with no scope configured (faculty with zero branches, student
// with no branch) gets a fail-closed Empty spec, never an error.
func ScopedQuery(actor account.Account) QuerySpec {
	switch actor.Role {
	case account.RoleAdmin:
		return QuerySpec{}
	case account.RoleStudent:
		if actor.Branch == "" || actor.Semester == "" {
			return QuerySpec{Empty: true}
		}
		return QuerySpec{Branch: actor.Branch, Semester: actor.Semester}
	case account.RoleFaculty:
		if len(actor.Branches) == 0 {
			return QuerySpec{Empty: true}
		}
		return QuerySpec{Branches: actor.Branches}
	}
	return QuerySpec{Empty: true}
}
