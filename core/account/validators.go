package account

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	staffRoleTag  = "staffrole"
	staffRoleText = "role must be faculty or admin"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to account attributes"
)

// staffRoleValidation restricts admin-created accounts to staff roles;
// students always come in through self-registration.
func staffRoleValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	return role == RoleFaculty || role == RoleAdmin
}

// accountStructValidation does struct level validation on the account
// creation/update payloads.
func accountStructValidation(sl validator.StructLevel) {
	switch acct := sl.Current().Interface().(type) {
	case NewAccount:
		validatePassword(acct.Password, acct.Name, acct.Email, acct.USN, sl)
	case NewStaffAccount:
		validatePassword(acct.Password, acct.Name, acct.Email, "", sl)
	case UpdateAccount:
		if acct.Password != "" {
			validatePassword(acct.Password, acct.Name, acct.Email, "", sl)
		}
	}
}

// validatePassword applies the password policy to the provided password:
// - minLen: 8
// - no whitespace
// - not all numeric
// - no similarity to account attributes
func validatePassword(pwd, name, email, usn string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	if getRatio(lpwd, strings.ToLower(name)) >= pwdMaxSim ||
		getRatio(lpwd, strings.ToLower(email)) >= pwdMaxSim ||
		getRatio(lpwd, strings.ToLower(usn)) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
		return
	}
}
