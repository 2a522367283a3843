// Package guard decides whether a protected view may be rendered for the current session.
package guard

import (
	"sync"

	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/role"
)

type State int

const (
	Loading State = iota
	Denied
	Allowed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "LOADING"
	case Denied:
		return "DENIED"
	case Allowed:
		return "ALLOWED"
	}
	return "UNKNOWN"
}

type Outcome int

const (
	Wait     Outcome = iota // show a loading state
	Redirect                // no session: go to login
	Refuse                  // session without the capability: in-place message
	Render                  // show the wrapped content
)

func (o Outcome) String() string {
	switch o {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	case Refuse:
		return "refuse"
	case Render:
		return "render"
	}
	return "unknown"
}

const MsgAccessRefused = "access refused"

// Session is the resolved authentication state the guard works on.
type Session struct {
	ID     string
	UserID string
	Role   role.Role
}

// Requirement lists the capabilities a view needs, all of them. An empty Requirement only needs a session.
type Requirement []role.Capability

func Require(caps ...role.Capability) Requirement { return caps }

func (req Requirement) SatisfiedBy(r role.Role) bool {
	for _, c := range req {
		if !role.Can(r, c) {
			return false
		}
	}
	return true
}

type Decision struct {
	State   State   `json:"state"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message,omitempty"`
}

// Evaluate is the pure decision table. It always yields exactly one outcome.
func Evaluate(resolved bool, sess *Session, req Requirement) Decision {
	switch {
	case !resolved:
		return Decision{State: Loading, Outcome: Wait}
	case sess == nil:
		return Decision{State: Denied, Outcome: Redirect}
	case !req.SatisfiedBy(sess.Role):
		return Decision{State: Denied, Outcome: Refuse, Message: MsgAccessRefused}
	default:
		return Decision{State: Allowed, Outcome: Render}
	}
}

// Resolver looks the session up again, e.g. after a role change. A nil session means signed out.
type Resolver func() (*Session, error)

// Guard holds the live decision of one protected view.
// It starts in Loading and follows every session or role change it is told about.
type Guard struct {
	mu        sync.Mutex
	req       Requirement
	resolved  bool
	session   *Session
	decision  Decision
	observers []func(Decision)
}

func New(req Requirement) *Guard {
	return &Guard{req: req, decision: Evaluate(false, nil, req)}
}

// Resolve ends session resolution with `sess` (nil: no session).
func (g *Guard) Resolve(sess *Session) Decision {
	g.mu.Lock()
	g.resolved = true
	if sess != nil {
		s := *sess
		g.session = &s
	} else {
		g.session = nil
	}
	return g.reevaluate()
}

// Reset puts the guard back in Loading while the session is resolved again.
func (g *Guard) Reset() Decision {
	g.mu.Lock()
	g.resolved = false
	return g.reevaluate()
}

// SetRole applies a role change to the current session.
func (g *Guard) SetRole(r role.Role) Decision {
	g.mu.Lock()
	if g.session != nil {
		g.session.Role = r
	}
	return g.reevaluate()
}

func (g *Guard) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

func (g *Guard) Session() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

// OnChange registers `fn`, called after every decision change.
func (g *Guard) OnChange(fn func(Decision)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, fn)
}

// reevaluate must be called with g.mu held, it releases it before notifying observers.
func (g *Guard) reevaluate() Decision {
	prev := g.decision
	g.decision = Evaluate(g.resolved, g.session, g.req)
	d := g.decision
	observers := append([]func(Decision){}, g.observers...)
	g.mu.Unlock()

	if d != prev {
		for _, fn := range observers {
			fn(d)
		}
	}
	return d
}

// Watch re-resolves the session whenever the role of its user or the session itself changes.
// The returned subscription must be unsubscribed by the owner of the guard.
func (g *Guard) Watch(bus *event.Bus, resolve Resolver) *event.Subscription {
	return bus.Subscribe(event.Tables(event.TableRoles, event.TableSessions), func(c event.Change) {
		sess := g.Session()
		if sess == nil {
			return
		}
		switch c.Table {
		case event.TableRoles:
			if c.ID != sess.UserID {
				return
			}
		case event.TableSessions:
			if c.ID != sess.ID {
				return
			}
		}

		g.Reset()
		fresh, err := resolve()
		if err != nil {
			fresh = nil // fail closed
		}
		g.Resolve(fresh)
	})
}
