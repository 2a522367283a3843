package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/guard"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/user"
)

const (
	tokenContextKey   = "userToken"
	sessionContextKey = "session"
	userContextKey    = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
// The token id (jti) is the id of the server side session.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Authenticator issues and checks the tokens of the API.
type Authenticator struct {
	conf      *core.Config
	users     *user.Service
	roles     *role.Service
	jwtConfig middleware.JWTConfig
	nowFn     func() time.Time
}

func NewAuthenticator(conf *core.Config, users *user.Service, roles *role.Service) *Authenticator {
	return &Authenticator{
		conf:  conf,
		users: users,
		roles: roles,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
		nowFn: time.Now,
	}
}

// UserClaims returns the claims of a token for `sess`. The token never outlives the session.
func (a *Authenticator) UserClaims(usr user.User, sess user.Session, origIat ...int64) *Claims {
	now := a.nowFn()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	exp := now.Add(a.conf.Server.JWTExpirationDelta)
	if !sess.ExpiresAt.IsZero() && sess.ExpiresAt.Before(exp) {
		exp = sess.ExpiresAt
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID,
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: exp.Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email.String,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (a *Authenticator) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Login opens a session and returns its token.
func (a *Authenticator) Login(ctx context.Context, login, pwd string) (string, user.User, user.Session, error) {
	usr, sess, err := a.users.SignIn(ctx, login, pwd)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return "", user.User{}, user.Session{}, errAuthenticationFailed
		}
		return "", user.User{}, user.Session{}, errors.Wrap(err, "signing in")
	}
	token, err := a.GenerateToken(a.UserClaims(usr, sess))
	if err != nil {
		return "", user.User{}, user.Session{}, err
	}
	return token, usr, sess, nil
}

// Refresh extends the session of the context and issues a new token for it.
func (a *Authenticator) Refresh(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if a.nowFn().After(expTime) {
		return "", errRefreshExpired
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return "", err
	}
	sess, err := a.users.Refresh(ctx.Request().Context(), claims.Id)
	if err != nil {
		return "", errors.Wrap(err, "extending session")
	}
	return a.GenerateToken(a.UserClaims(usr, sess, claims.OrigIssuedAt))
}

// JWT checks the bearer token.
func (a *Authenticator) JWT() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(a.jwtConfig)
}

// Session resolves the live session of the token and the current role of its user.
// Revoked or expired sessions are refused even when the token is still valid.
func (a *Authenticator) Session() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}

			usr, sess, err := a.lookup(ctx.Request().Context(), claims.Id)
			if err != nil {
				return err
			}
			if sess == nil {
				return errSessionExpired
			}

			ctx.Set(userContextKey, usr)
			ctx.Set(sessionContextKey, sess)
			return next(ctx)
		}
	}
}

// lookup returns the live session `sessionID` with the current role of its user.
// The session is nil when it ended (signed out, expired or user removed).
func (a *Authenticator) lookup(ctx context.Context, sessionID string) (user.User, *guard.Session, error) {
	sess, usr, err := a.users.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, user.ErrSessionNotFound) || errors.Is(err, user.ErrSessionExpired) || errors.Is(err, user.ErrNotFound) {
			return user.User{}, nil, nil
		}
		return user.User{}, nil, errors.Wrap(err, "resolving session")
	}
	r, err := a.roles.RoleOf(ctx, usr.ID)
	if err != nil {
		return user.User{}, nil, errors.Wrap(err, "resolving role")
	}
	return usr, &guard.Session{ID: sess.ID, UserID: usr.ID, Role: r}, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// getContextSession returns nil when the request is not authenticated.
func getContextSession(ctx echo.Context) *guard.Session {
	sess, _ := ctx.Get(sessionContextKey).(*guard.Session)
	return sess
}

// actor is the id of the user making a change (stored in updated_by columns and change events).
func actor(ctx echo.Context) string {
	if sess := getContextSession(ctx); sess != nil {
		return sess.UserID
	}
	return ""
}
