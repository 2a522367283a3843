// Package testutil holds the fixtures shared by the tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/user"
)

// NewValidator returns a validator with every custom tag registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator, _ := ut.New(en.New(), en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	role.InitValidators(validate, translator)
	member.InitValidators(validate, translator)
	contribution.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, uname, email, pwd string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     null.NewString(email, email != ""),
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateMember stores a member straight through the repository.
func CreateMember(t *testing.T, repo member.Repository, nom, prenom, sexe string, opts ...func(*member.Member)) member.Member {
	t.Helper()
	now := time.Now().UTC()
	m := member.Member{
		Nom:             nom,
		Prenom:          prenom,
		Sexe:            sexe,
		DateInscription: core.DateOf(now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m, err := repo.CreateMember(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return m
}

// Logger records what is logged.
type Logger struct {
	mu      sync.Mutex
	Entries []string
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

var _ core.Logger = (*Logger)(nil)

// Mailer collects the messages instead of sending them.
type Mailer struct {
	mu       sync.Mutex
	Messages []*core.EmailMessage
	sent     chan struct{}
}

func NewMailer() *Mailer { return &Mailer{sent: make(chan struct{}, 16)} }

func (m *Mailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	m.Messages = append(m.Messages, messages...)
	m.mu.Unlock()
	select {
	case m.sent <- struct{}{}:
	default:
	}
}

// Wait blocks until a message was sent or the timeout elapsed.
func (m *Mailer) Wait(timeout time.Duration) bool {
	select {
	case <-m.sent:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (m *Mailer) Sent() []*core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.EmailMessage(nil), m.Messages...)
}
