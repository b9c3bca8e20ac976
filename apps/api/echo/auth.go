package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

const (
	tokenContextKey   = "accountToken"
	accountContextKey = "account"
)

func newAppJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Email        string   `json:"email,omitempty"`
	Role         string   `json:"role,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"` // -> STUDENT DASHBOARD
	IsFaculty    bool     `json:"is_faculty,omitempty"` // -> FACULTY DASHBOARD
	IsAdmin      bool     `json:"is_admin,omitempty"`   // -> ADMIN DASHBOARD
	Branch       string   `json:"branch,omitempty"`
	Semester     string   `json:"semester,omitempty"`
	Branches     []string `json:"branches,omitempty"`
}

func GetAccountClaims(conf *core.Config, acct account.Account, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   acct.ID,
			Audience:  "Campus",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        acct.Email,
		Role:         acct.Role,
		IsStudent:    acct.IsStudent(),
		IsFaculty:    acct.IsFaculty(),
		IsAdmin:      acct.IsAdmin(),
		Branch:       acct.Branch,
		Semester:     acct.Semester,
		Branches:     acct.Branches,
	}
}

// authenticate checks credentials, then the account's approval status:
// pending accounts are told to wait, declined ones are rejected outright.
// The caller may pin the expected role (the dashboard being signed into).
func authenticate(ctx echo.Context, email, pwd, role string, deps ServerDeps) (*Claims, error) {
	acct, err := deps.AccountSvc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding account by email")
	}
	if err = acct.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	switch acct.Status {
	case account.StatusApproved:
	case account.StatusPending:
		return nil, errAccountPending
	default:
		return nil, errAccountRejected
	}
	if role != "" && acct.Role != role {
		return nil, errAccountRejected
	}
	acct, err = deps.AccountSvc.SetLastLogin(ctx.Request().Context(), acct)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetAccountClaims(deps.Conf, acct), nil
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextAccount(ctx echo.Context, svc account.ServiceInterface, clms ...Claims) (account.Account, error) {
	if acct, ok := ctx.Get(accountContextKey).(account.Account); ok {
		return acct, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return account.Account{}, errors.Wrap(err, "getting context claims")
		}
	}

	acct, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	ctx.Set(accountContextKey, acct)
	return acct, nil
}

func refreshToken(ctx echo.Context, deps ServerDeps) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	acct, err := getContextAccount(ctx, deps.AccountSvc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context account")
	}

	// check if account is still approved
	if !acct.IsApproved() {
		return "", errAccountRejected
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(deps.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetAccountClaims(deps.Conf, acct, claims.OrigIssuedAt)
	token, err := GenerateToken(deps.Conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
