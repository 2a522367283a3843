package user

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/role"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid or expired password reset link")
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when another user
		// (not in excludedIDs) holds `username` or `email`.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	// RoleAssigner returns the assignment of a user, creating the default one when missing.
	RoleAssigner interface {
		Get(ctx context.Context, userID string) (role.Assignment, error)
	}

	Service struct {
		repo     Repository
		roles    RoleAssigner
		sessions *SessionStore
		mailSvc  core.EmailService
		bus      *event.Bus
		validate *validator.Validate
		tokens   resetTokens
		nowFn    func() time.Time

		// SessionTTL gives the lifetime of new sessions; 30 minutes when nil.
		SessionTTL func(ctx context.Context) time.Duration
	}
)

func NewService(
	repo Repository,
	roles RoleAssigner,
	sessions *SessionStore,
	mailSvc core.EmailService,
	bus *event.Bus,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		roles:    roles,
		sessions: sessions,
		mailSvc:  mailSvc,
		bus:      bus,
		validate: validate,
		tokens:   resetTokens{secretKey: []byte(conf.SecretKey), timeout: conf.PasswordResetTimeoutDelta, nowFn: time.Now},
		nowFn:    time.Now,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, excludedIDs...); err != nil {
		var field string
		switch {
		case errors.Is(err, ErrUsernameExists):
			field = "username"
		case errors.Is(err, ErrEmailExists):
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// SignUp creates an active user holding the default role.
func (svc *Service) SignUp(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email.String); err != nil {
		return User{}, err
	}

	now := svc.nowFn().UTC()
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		MemberID:  nu.MemberID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	if _, err := svc.roles.Get(ctx, usr.ID); err != nil {
		return usr, pkgerrors.Wrap(err, "assigning default role")
	}
	return usr, nil
}

// SignIn checks the credentials and opens a session.
func (svc *Service) SignIn(ctx context.Context, login, password string) (User, Session, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(login, true /* lower */))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, Session{}, ErrInvalidCredentials
		}
		return User{}, Session{}, err
	}
	if !usr.IsActive || usr.CheckPassword(password) != nil {
		return User{}, Session{}, ErrInvalidCredentials
	}

	usr.LastLogin = null.TimeFrom(svc.nowFn().UTC())
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, Session{}, pkgerrors.Wrap(err, "updating last login")
	}

	sess := svc.sessions.Create(usr.ID, svc.sessionTTL(ctx))
	svc.publish(event.Insert, sess)
	return usr, sess, nil
}

// Refresh extends a live session.
func (svc *Service) Refresh(ctx context.Context, sessionID string) (Session, error) {
	sess, err := svc.sessions.Extend(sessionID, svc.sessionTTL(ctx))
	if err != nil {
		return Session{}, err
	}
	svc.publish(event.Update, sess)
	return sess, nil
}

func (svc *Service) SignOut(_ context.Context, sessionID string) error {
	sess, err := svc.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	svc.sessions.Revoke(sessionID)
	svc.publish(event.Delete, sess)
	return nil
}

// Session returns a live session with its user. Sessions of deactivated users are ended.
func (svc *Service) Session(ctx context.Context, sessionID string) (Session, User, error) {
	sess, err := svc.sessions.Get(sessionID)
	if err != nil {
		return Session{}, User{}, err
	}
	usr, err := svc.repo.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return Session{}, User{}, err
	}
	if !usr.IsActive {
		svc.sessions.Revoke(sessionID)
		svc.publish(event.Delete, sess)
		return Session{}, User{}, ErrSessionNotFound
	}
	return sess, usr, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, login string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(login, true /* lower */))
}

// SetPassword replaces the password of a user and ends its sessions.
func (svc *Service) SetPassword(ctx context.Context, usr User, password string) (User, error) {
	if err := usr.SetPassword(password); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = svc.nowFn().UTC()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	for _, id := range svc.sessions.RevokeUser(usr.ID) {
		svc.publish(event.Delete, Session{ID: id, UserID: usr.ID})
	}
	return usr, nil
}

// RequestPasswordReset emails a reset link to the user owning `email`.
// The mail is sent in the background.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	if svc.mailSvc == nil || !usr.Email.Valid {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Username, Address: usr.Email.String}},
		Subject:      "Réinitialisation du mot de passe",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Username": usr.Username,
			"UID":      encodeUID(usr),
			"Token":    svc.tokens.make(usr),
		},
	})
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	if err := data.Validate(svc.validate); err != nil {
		return User{}, err
	}
	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, ErrInvalidResetToken
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidResetToken
		}
		return User{}, err
	}
	if err := svc.tokens.verify(usr, data.Token); err != nil {
		return User{}, ErrInvalidResetToken
	}
	return svc.SetPassword(ctx, usr, data.Password)
}

func (svc *Service) sessionTTL(ctx context.Context) time.Duration {
	if svc.SessionTTL != nil {
		if ttl := svc.SessionTTL(ctx); ttl > 0 {
			return ttl
		}
	}
	return 30 * time.Minute
}

func (svc *Service) publish(action event.Action, sess Session) {
	svc.bus.Publish(event.Change{Table: event.TableSessions, Action: action, ID: sess.ID, Actor: sess.UserID})
}
