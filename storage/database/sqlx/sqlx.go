// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/trezcool/mpiangona/core"
)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func pqCode(err error) (string, string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pqCode(err)
	return code == uniqueViolation
}

// foreignKeyOn reports whether `err` violates a foreign key whose constraint name contains `column`.
func foreignKeyOn(err error, column string) bool {
	code, constraint := pqCode(err)
	return code == foreignKeyViolation && strings.Contains(constraint, column)
}

// trapNoRowsErr maps "no rows" to `notFound`; any other failure is a RepositoryError.
func trapNoRowsErr(err error, notFound error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return core.NewRepositoryError(op, err)
}

// mustAffect returns `notFound` when the statement touched no row.
func mustAffect(res sql.Result, notFound error, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewRepositoryError(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// where accumulates AND-ed conditions written with `?` placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders the ordering, keeping only the fields in `columns` (field -> column).
func orderBy(ordering []core.DBOrdering, columns map[string]string, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		list = append(list, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(list) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(list, ", ")
}
