package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db.account}
}

func (repo *accountRepository) query() []account.Account {
	accts := make([]account.Account, 0, len(repo.db.table))
	for _, acct := range repo.db.table {
		accts = append(accts, *acct)
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i].CreatedAt.Before(accts[j].CreatedAt) })
	return accts
}

func (repo *accountRepository) CheckUniqueness(ctx context.Context, email, usn string, excluded ...account.Account) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acct := range repo.query() {
		if isExcluded(acct, excluded) {
			continue
		}
		if acct.Email == email {
			return account.ErrEmailExists
		}
		if usn != "" && acct.USN == usn {
			return account.ErrUSNExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	acct.ID = uuid.New().String()
	repo.db.table[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acct, ok := repo.db.table[id]; ok {
		return *acct, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acct := range repo.query() {
		if acct.Email == email {
			return acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryAccounts(ctx context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accts := make([]account.Account, 0)
	for _, acct := range repo.query() {
		if matchesFilter(acct, filter) {
			accts = append(accts, acct)
		}
	}
	return accts, nil
}

func matchesFilter(acct account.Account, filter *account.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(acct.Name), kw) &&
			!strings.Contains(strings.ToLower(acct.Email), kw) &&
			!strings.Contains(strings.ToLower(acct.USN), kw) {
			return false
		}
	}
	if filter.Role != "" && acct.Role != filter.Role {
		return false
	}
	if filter.Status != "" && acct.Status != filter.Status {
		return false
	}
	if filter.Branch != "" && acct.Branch != filter.Branch {
		return false
	}
	if len(filter.Branches) > 0 {
		var found bool
		for _, b := range filter.Branches {
			if acct.Branch == b {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && acct.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && acct.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	orig, ok := repo.db.table[acct.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if acct.Name != "" {
		orig.Name = acct.Name
	}
	if acct.Email != "" {
		orig.Email = acct.Email
	}
	if acct.Phone != "" {
		orig.Phone = acct.Phone
	}
	if acct.Title != "" {
		orig.Title = acct.Title
	}
	if acct.Branch != "" {
		orig.Branch = acct.Branch
	}
	if acct.Semester != "" {
		orig.Semester = acct.Semester
	}
	if acct.Branches != nil {
		orig.Branches = acct.Branches
	}
	if acct.Semesters != nil {
		orig.Semesters = acct.Semesters
	}
	if acct.PasswordHash != nil {
		orig.PasswordHash = acct.PasswordHash
	}
	if !acct.UpdatedAt.IsZero() {
		orig.UpdatedAt = acct.UpdatedAt
	}
	if !acct.LastLogin.IsZero() {
		orig.LastLogin = acct.LastLogin
	}

	repo.db.table[acct.ID] = orig
	return *orig, nil
}

func (repo *accountRepository) UpdateAccountStatus(ctx context.Context, id, from, to string) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	acct, ok := repo.db.table[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if acct.Status != from {
		return account.Account{}, account.ErrStatusConflict
	}
	acct.Status = to
	return *acct, nil
}

func (repo *accountRepository) DeleteAccountsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func isExcluded(acct account.Account, excluded []account.Account) bool {
	for _, ex := range excluded {
		if ex.ID == acct.ID {
			return true
		}
	}
	return false
}
