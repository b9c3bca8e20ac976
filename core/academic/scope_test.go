package academic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iamthanushgowdap/apsconnect/core/account"
)

func TestScopedQuery(t *testing.T) {
	tests := []struct {
		name  string
		actor account.Account
		want  QuerySpec
	}{
		{
			name:  "admin is unrestricted",
			actor: account.Account{Role: account.RoleAdmin},
			want:  QuerySpec{},
		},
		{
			name:  "student gets own branch and semester",
			actor: account.Account{Role: account.RoleStudent, Branch: "CSE", Semester: "3"},
			want:  QuerySpec{Branch: "CSE", Semester: "3"},
		},
		{
			name:  "student without a branch fails closed",
			actor: account.Account{Role: account.RoleStudent, Semester: "3"},
			want:  QuerySpec{Empty: true},
		},
		{
			name:  "student without a semester fails closed",
			actor: account.Account{Role: account.RoleStudent, Branch: "CSE"},
			want:  QuerySpec{Empty: true},
		},
		{
			name:  "faculty gets assigned branches",
			actor: account.Account{Role: account.RoleFaculty, Branches: []string{"CSE", "ECE"}},
			want:  QuerySpec{Branches: []string{"CSE", "ECE"}},
		},
		{
			name:  "faculty with no branches fails closed",
			actor: account.Account{Role: account.RoleFaculty},
			want:  QuerySpec{Empty: true},
		},
		{
			name:  "unknown role fails closed",
			actor: account.Account{Role: "superuser"},
			want:  QuerySpec{Empty: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScopedQuery(tt.actor))
		})
	}
}

func TestQuerySpec_Matches(t *testing.T) {
	tests := []struct {
		name             string
		spec             QuerySpec
		branch, semester string
		want             bool
	}{
		{name: "unrestricted matches anything", spec: QuerySpec{}, branch: "CSE", semester: "3", want: true},
		{name: "empty matches nothing", spec: QuerySpec{Empty: true}, branch: "CSE", semester: "3", want: false},
		{name: "branch+semester match", spec: QuerySpec{Branch: "CSE", Semester: "3"}, branch: "CSE", semester: "3", want: true},
		{name: "same branch, other semester", spec: QuerySpec{Branch: "CSE", Semester: "3"}, branch: "CSE", semester: "5", want: false},
		{name: "other branch", spec: QuerySpec{Branch: "CSE", Semester: "3"}, branch: "ECE", semester: "3", want: false},
		{name: "membership hit", spec: QuerySpec{Branches: []string{"CSE", "ECE"}}, branch: "ECE", semester: "7", want: true},
		{name: "membership miss", spec: QuerySpec{Branches: []string{"CSE", "ECE"}}, branch: "ME", semester: "7", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Matches(tt.branch, tt.semester))
		})
	}
}
