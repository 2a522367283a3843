package dues

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/qrcode"
)

var (
	// errors
	ErrNotFound    = errors.New("dues record not found")
	ErrConflict    = errors.New("a dues record already exists for this period")
	ErrNotMpandray = errors.New("this member is not registered as mpandray")
)

type (
	// Repository stores dues records; (MemberID, Mois, Annee) is unique and
	// InsertRecord fails with ErrConflict when the period already has a record.
	Repository interface {
		GetRecordByPeriod(ctx context.Context, memberID string, mois, annee int) (Record, error)
		InsertRecord(ctx context.Context, r Record) (Record, error)
		UpdateRecord(ctx context.Context, r Record) (Record, error)
		// QueryRecords lists the records matching the filter by member name.
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	}

	Service struct {
		repo     Repository
		members  qrcode.MemberFinder
		bus      *event.Bus
		validate *validator.Validate
		nowFn    func() time.Time
	}
)

func NewService(repo Repository, members qrcode.MemberFinder, bus *event.Bus, validate *validator.Validate) *Service {
	return &Service{repo: repo, members: members, bus: bus, validate: validate, nowFn: time.Now}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	filter.MemberID = core.CleanString(filter.MemberID)
	return svc.repo.QueryRecords(ctx, filter)
}

// UpsertByPeriod writes the single record of the period.
// A record turning paid gets the supplied date (today by default), a record staying paid
// keeps its date unless a new one is supplied, and an unpaid record has no payment date.
func (svc *Service) UpsertByPeriod(ctx context.Context, u Upsert, actor string) (Record, error) {
	if err := u.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	if _, err := svc.members.GetByID(ctx, u.MemberID); err != nil {
		return Record{}, err
	}

	now := svc.nowFn().UTC()
	existing, err := svc.repo.GetRecordByPeriod(ctx, u.MemberID, u.Mois, u.Annee)
	switch {
	case err == nil:
		return svc.update(ctx, existing, u, now, actor)
	case !errors.Is(err, ErrNotFound):
		return Record{}, pkgerrors.Wrap(err, "getting dues record")
	}

	r := Record{MemberID: u.MemberID, Mois: u.Mois, Annee: u.Annee, CreatedAt: now}
	r = apply(r, u, now)
	saved, err := svc.repo.InsertRecord(ctx, r)
	switch {
	case err == nil:
		svc.publish(event.Insert, saved, actor)
		return saved, nil
	case errors.Is(err, ErrConflict):
		// concurrent write of the same period
		existing, err = svc.repo.GetRecordByPeriod(ctx, u.MemberID, u.Mois, u.Annee)
		if err != nil {
			return Record{}, pkgerrors.Wrap(err, "getting dues record")
		}
		return svc.update(ctx, existing, u, now, actor)
	default:
		return Record{}, pkgerrors.Wrap(err, "inserting dues record")
	}
}

func (svc *Service) update(ctx context.Context, r Record, u Upsert, now time.Time, actor string) (Record, error) {
	saved, err := svc.repo.UpdateRecord(ctx, apply(r, u, now))
	if err != nil {
		return Record{}, pkgerrors.Wrap(err, "updating dues record")
	}
	svc.publish(event.Update, saved, actor)
	return saved, nil
}

func apply(r Record, u Upsert, now time.Time) Record {
	wasPaid := r.Paye
	r.Montant = u.Montant
	r.Paye = u.Paye
	r.UpdatedAt = now

	switch {
	case !u.Paye:
		r.DatePaiement = nil
	case u.PaidAt != nil && !u.PaidAt.IsZero():
		d := *u.PaidAt
		r.DatePaiement = &d
	case !wasPaid || r.DatePaiement == nil:
		d := core.DateOf(now)
		r.DatePaiement = &d
	}
	return r
}

// ScanResult is what a scanned card resolves to.
type ScanResult struct {
	Member member.Member `json:"adherent"`
	Record Record        `json:"adidy"`
}

// ScanPayment marks the current month of the member designated by a scanned card as paid.
// Only mpandray members pay adidy.
func (svc *Service) ScanPayment(ctx context.Context, data string, amount int64, actor string) (ScanResult, error) {
	m, err := qrcode.Resolve(ctx, data, svc.members)
	if err != nil {
		return ScanResult{}, err
	}
	if !m.Mpandray {
		return ScanResult{}, core.NewValidationError(ErrNotMpandray, core.FieldError{Field: "adherent_id", Error: ErrNotMpandray.Error()})
	}
	if amount <= 0 {
		amount = DefaultAmount
	}

	now := svc.nowFn().UTC()
	r, err := svc.MarkPaid(ctx, m.ID, int(now.Month()), now.Year(), amount, actor)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Member: m, Record: r}, nil
}

// MarkPaid records the payment of one period, paid today.
func (svc *Service) MarkPaid(ctx context.Context, memberID string, mois, annee int, amount int64, actor string) (Record, error) {
	return svc.UpsertByPeriod(ctx, Upsert{MemberID: memberID, Mois: mois, Annee: annee, Montant: amount, Paye: true}, actor)
}

func (svc *Service) publish(action event.Action, r Record, actor string) {
	svc.bus.Publish(event.Change{Table: event.TableDues, Action: action, ID: r.ID, Label: r.MemberID, Actor: actor})
}
