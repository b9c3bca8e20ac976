package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

type accountRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	Phone        string         `db:"phone"`
	USN          null.String    `db:"usn"`
	Title        string         `db:"title"`
	Role         string         `db:"role"`
	Status       string         `db:"status"`
	Branch       null.String    `db:"branch"`
	Semester     null.String    `db:"semester"`
	Branches     pq.StringArray `db:"branches"`
	Semesters    pq.StringArray `db:"semesters"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func rowFromAccount(acct account.Account) accountRow {
	return accountRow{
		ID:           acct.ID,
		Name:         acct.Name,
		Email:        acct.Email,
		Phone:        acct.Phone,
		USN:          null.NewString(acct.USN, acct.USN != ""),
		Title:        acct.Title,
		Role:         acct.Role,
		Status:       acct.Status,
		Branch:       null.NewString(acct.Branch, acct.Branch != ""),
		Semester:     null.NewString(acct.Semester, acct.Semester != ""),
		Branches:     pq.StringArray(acct.Branches),
		Semesters:    pq.StringArray(acct.Semesters),
		PasswordHash: acct.PasswordHash,
		CreatedAt:    null.NewTime(acct.CreatedAt.UTC(), !acct.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(acct.UpdatedAt.UTC(), !acct.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(acct.LastLogin.UTC(), !acct.LastLogin.IsZero()),
	}
}

func (r accountRow) account() account.Account {
	return account.Account{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		USN:          r.USN.String,
		Title:        r.Title,
		Role:         r.Role,
		Status:       r.Status,
		Branch:       r.Branch.String,
		Semester:     r.Semester.String,
		Branches:     r.Branches,
		Semesters:    r.Semesters,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to account.ErrNotFound
func (repo accountRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return account.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo accountRepository) CheckUniqueness(ctx context.Context, email, usn string, excluded ...account.Account) error {
	// an email clash is reported before a USN clash
	q := "SELECT CASE WHEN email = $1 THEN 'email' ELSE 'usn' END FROM account WHERE (email = $1 OR ($2 != '' AND usn = $2))"
	args := []interface{}{email, usn}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, acct := range excluded {
			ids = append(ids, acct.ID)
		}
		q += " AND NOT (id = ANY($3))"
		args = append(args, pq.StringArray(ids))
	}
	q += " ORDER BY 1 LIMIT 1"

	var field string
	err := repo.db.GetContext(ctx, &field, q, args...)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking account uniqueness")
	case field == "email":
		return account.ErrEmailExists
	}
	return account.ErrUSNExists
}

func (repo accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	acct.ID = uuid.New().String()
	row := rowFromAccount(acct)
	q := `
INSERT INTO account (id, name, email, phone, usn, title, role, status, branch, semester, branches, semesters, password_hash, created_at, updated_at)
VALUES (:id, :name, :email, :phone, :usn, :title, :role, :status, :branch, :semester, :branches, :semesters, :password_hash, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return row.account(), nil
}

func (repo accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return account.Account{}, account.ErrNotFound
	}
	var row accountRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM account WHERE id = $1", id); err != nil {
		return account.Account{}, repo.trapNoRowsErr(err, "finding account by ID")
	}
	return row.account(), nil
}

func (repo accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	var row accountRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM account WHERE email = $1", email); err != nil {
		return account.Account{}, repo.trapNoRowsErr(err, "finding account by email")
	}
	return row.account(), nil
}

func (repo accountRepository) QueryAccounts(ctx context.Context, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	var conds []string
	var args []interface{}

	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// accounts with Name, Email or USN matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, fmt.Sprintf(
				"(name ILIKE %[1]s OR email ILIKE %[1]s OR usn ILIKE %[1]s)", arg(val)))
		}
		if filter.Role != "" {
			conds = append(conds, "role = "+arg(filter.Role))
		}
		if filter.Status != "" {
			conds = append(conds, "status = "+arg(filter.Status))
		}
		if filter.Branch != "" {
			conds = append(conds, "branch = "+arg(filter.Branch))
		}
		if len(filter.Branches) > 0 {
			conds = append(conds, "branch = ANY("+arg(pq.StringArray(filter.Branches))+")")
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}

	q := "SELECT * FROM account"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		q += " ORDER BY created_at"
	}

	var rows []accountRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	accts := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accts = append(accts, row.account())
	}
	return accts, nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	orig, err := repo.GetAccountByID(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}
	merged := mergeAccount(orig, acct)
	row := rowFromAccount(merged)
	q := `
UPDATE account
SET name = :name, email = :email, phone = :phone, title = :title,
    branch = :branch, semester = :semester, branches = :branches, semesters = :semesters,
    password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
WHERE id = :id`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	return merged, nil
}

// mergeAccount overlays the provided (possibly partial) account on the
// stored one. Role and status never change through UpdateAccount.
func mergeAccount(orig, acct account.Account) account.Account {
	merged := orig
	if acct.Name != "" {
		merged.Name = acct.Name
	}
	if acct.Email != "" {
		merged.Email = acct.Email
	}
	if acct.Phone != "" {
		merged.Phone = acct.Phone
	}
	if acct.Title != "" {
		merged.Title = acct.Title
	}
	if acct.Branch != "" {
		merged.Branch = acct.Branch
	}
	if acct.Semester != "" {
		merged.Semester = acct.Semester
	}
	if acct.Branches != nil {
		merged.Branches = acct.Branches
	}
	if acct.Semesters != nil {
		merged.Semesters = acct.Semesters
	}
	if acct.PasswordHash != nil {
		merged.PasswordHash = acct.PasswordHash
	}
	if !acct.UpdatedAt.IsZero() {
		merged.UpdatedAt = acct.UpdatedAt
	}
	if !acct.LastLogin.IsZero() {
		merged.LastLogin = acct.LastLogin
	}
	return merged
}

// UpdateAccountStatus only applies while the stored status still equals
// from; a lost race surfaces as account.ErrStatusConflict.
func (repo accountRepository) UpdateAccountStatus(ctx context.Context, id, from, to string) (account.Account, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE account SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3", to, id, from)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account status")
	}
	if n == 0 {
		if _, err = repo.GetAccountByID(ctx, id); err != nil {
			return account.Account{}, err
		}
		return account.Account{}, account.ErrStatusConflict
	}
	return repo.GetAccountByID(ctx, id)
}

func (repo accountRepository) DeleteAccountsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM account WHERE id = ANY($1)", pq.StringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return nil
}
