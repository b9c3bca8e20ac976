package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

// addAdmin updates or creates an approved admin account.
func (cli *commandLine) addAdmin(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	acct, err := cli.acctRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err != account.ErrNotFound {
			return err
		}
		acct = account.Account{
			Name:      name,
			Email:     email,
			Role:      account.RoleAdmin,
			Status:    account.StatusApproved,
			CreatedAt: now,
		}
		if err = acct.SetPassword(pwd); err != nil {
			return err
		}
		acct.UpdatedAt = now
		_, err = cli.acctRepo.CreateAccount(ctx, acct)
		return err
	}

	if !acct.IsAdmin() {
		return errors.Errorf("account %s exists with role %q; only fresh admin accounts can be created here", email, acct.Role)
	}
	if err = acct.SetPassword(pwd); err != nil {
		return err
	}
	acct.Name = name
	acct.UpdatedAt = now
	_, err = cli.acctRepo.UpdateAccount(ctx, acct)
	return err
}
