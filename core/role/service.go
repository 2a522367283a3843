package role

import (
	"context"
	"errors"
	"math"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/event"
)

var (
	// errors
	ErrNotFound = errors.New("role assignment not found")
	ErrConflict = errors.New("a role is already assigned to this user")
)

// Assignment is the single role of a user.
type Assignment struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Stat struct {
	Definition
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

type (
	// Repository stores assignments. The store guarantees one row per user:
	// InsertAssignment fails with ErrConflict when the user already has one.
	Repository interface {
		GetAssignment(ctx context.Context, userID string) (Assignment, error)
		InsertAssignment(ctx context.Context, a Assignment) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		QueryAssignments(ctx context.Context) ([]Assignment, error)
	}

	Service struct {
		repo  Repository
		bus   *event.Bus
		nowFn func() time.Time
	}
)

func NewService(repo Repository, bus *event.Bus) *Service {
	return &Service{repo: repo, bus: bus, nowFn: time.Now}
}

// Get returns the assignment of `userID`, inserting the default role when none exists yet.
func (svc *Service) Get(ctx context.Context, userID string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, userID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Assignment{}, pkgerrors.Wrap(err, "getting role assignment")
	}

	a, err = svc.repo.InsertAssignment(ctx, Assignment{UserID: userID, Role: Default, UpdatedAt: svc.now()})
	switch {
	case err == nil:
		svc.publish(event.Insert, a)
		return a, nil
	case errors.Is(err, ErrConflict):
		// someone else repaired it first
		a, err = svc.repo.GetAssignment(ctx, userID)
		return a, pkgerrors.Wrap(err, "getting role assignment")
	default:
		return Assignment{}, pkgerrors.Wrap(err, "inserting default role")
	}
}

// RoleOf is a shortcut for Get(...).Role
func (svc *Service) RoleOf(ctx context.Context, userID string) (Role, error) {
	a, err := svc.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return a.Role, nil
}

// Upsert assigns `r` to `userID`. The insert is attempted first and a uniqueness
// conflict is retried as an update, so concurrent upserts never produce two rows.
func (svc *Service) Upsert(ctx context.Context, userID string, r Role) (Assignment, error) {
	if !r.Valid() {
		return Assignment{}, core.NewValidationError(ErrUnknownRole, core.FieldError{Field: "role", Error: ErrUnknownRole.Error()})
	}
	if !Issuable(r) {
		return Assignment{}, core.NewValidationError(ErrNotIssuable, core.FieldError{Field: "role", Error: ErrNotIssuable.Error()})
	}

	a := Assignment{UserID: userID, Role: r, UpdatedAt: svc.now()}
	saved, err := svc.repo.InsertAssignment(ctx, a)
	if err == nil {
		svc.publish(event.Insert, saved)
		return saved, nil
	}
	if !errors.Is(err, ErrConflict) {
		return Assignment{}, pkgerrors.Wrap(err, "inserting role assignment")
	}

	saved, err = svc.repo.UpdateAssignment(ctx, a)
	if err != nil {
		return Assignment{}, pkgerrors.Wrap(err, "updating role assignment")
	}
	svc.publish(event.Update, saved)
	return saved, nil
}

func (svc *Service) Query(ctx context.Context) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx)
}

// Stats counts the users of each role.
func (svc *Service) Stats(ctx context.Context) ([]Stat, int, error) {
	assignments, err := svc.repo.QueryAssignments(ctx)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "querying role assignments")
	}
	return ComputeStats(assignments), len(assignments), nil
}

// ComputeStats returns one Stat per known role, in Definitions order.
func ComputeStats(assignments []Assignment) []Stat {
	counts := make(map[Role]int, len(All))
	for _, a := range assignments {
		counts[a.Role]++
	}
	total := len(assignments)

	stats := make([]Stat, 0, len(Definitions))
	for _, def := range Definitions {
		st := Stat{Definition: def, Count: counts[def.Role]}
		if total > 0 {
			st.Percentage = int(math.Round(float64(st.Count) / float64(total) * 100))
		}
		stats = append(stats, st)
	}
	return stats
}

func (svc *Service) now() time.Time { return svc.nowFn().UTC() }

func (svc *Service) publish(action event.Action, a Assignment) {
	svc.bus.Publish(event.Change{Table: event.TableRoles, Action: action, ID: a.UserID, Label: string(a.Role)})
}
