package main

import (
	"context"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

// approve moves a pending registration to approved, straight through the
// repository: the CLI operator outranks the in-app moderation rules.
func (cli *commandLine) approve(email string) error {
	ctx := context.Background()
	acct, err := cli.acctRepo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if acct.IsApproved() {
		return nil
	}
	_, err = cli.acctRepo.UpdateAccountStatus(ctx, acct.ID, acct.Status, account.StatusApproved)
	return err
}
