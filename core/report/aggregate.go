// Package report aggregates contributions and dues for the finance screens and exports.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/dues"
)

const DefaultTop = 10

type TypeShare struct {
	Type    contribution.Type `json:"type"`
	Label   string            `json:"label"`
	Amount  int64             `json:"amount"`
	Percent float64           `json:"percent"`
}

// TypeBreakdown has one share per contribution type, in contribution.Types order.
type TypeBreakdown struct {
	Total  int64       `json:"total"`
	Shares []TypeShare `json:"shares"`
}

func (tb TypeBreakdown) Amount(t contribution.Type) int64 {
	for _, s := range tb.Shares {
		if s.Type == t {
			return s.Amount
		}
	}
	return 0
}

// ByType sums the contributions per type. Percentages are rounded to 2 decimals
// and are all 0 when nothing was given.
func ByType(cs []contribution.Contribution) TypeBreakdown {
	sums := make(map[contribution.Type]int64, len(contribution.Types))
	var total int64
	for _, c := range cs {
		sums[c.Type] += c.Montant
		total += c.Montant
	}

	tb := TypeBreakdown{Total: total, Shares: make([]TypeShare, 0, len(contribution.Types))}
	for _, t := range contribution.Types {
		s := TypeShare{Type: t, Label: t.Label(), Amount: sums[t]}
		if total > 0 {
			s.Percent = round2(float64(s.Amount) / float64(total) * 100)
		}
		tb.Shares = append(tb.Shares, s)
	}
	return tb
}

type MonthBucket struct {
	Key       string `json:"key"` // YYYY-MM
	Dimes     int64  `json:"dimes"`
	Offrandes int64  `json:"offrandes"`
	Dons      int64  `json:"dons"`
	Total     int64  `json:"total"`
}

func (b *MonthBucket) add(c contribution.Contribution) {
	switch c.Type {
	case contribution.Dime:
		b.Dimes += c.Montant
	case contribution.Offrande:
		b.Offrandes += c.Montant
	case contribution.Don:
		b.Dons += c.Montant
	}
	b.Total += c.Montant
}

const monthKey = "2006-01"

// Monthly returns the 12 months ending with the month of `now`, oldest first, zero-filled.
func Monthly(cs []contribution.Contribution, now time.Time) []MonthBucket {
	last := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Range(cs, last.AddDate(0, -11, 0), last)
}

// MaxSpanYears bounds the distance between the two ends of a report window.
const MaxSpanYears = 10

// Range returns one bucket per calendar month from the month of `from` to the month of `to`.
// Months past MaxSpanYears after `from` are dropped.
func Range(cs []contribution.Contribution, from, to time.Time) []MonthBucket {
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return []MonthBucket{}
	}
	if limit := start.AddDate(MaxSpanYears, 0, 0); end.After(limit) {
		end = limit
	}

	var buckets []MonthBucket
	index := make(map[string]int)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		key := m.Format(monthKey)
		index[key] = len(buckets)
		buckets = append(buckets, MonthBucket{Key: key})
	}

	for _, c := range cs {
		if i, ok := index[c.Date.Format(monthKey)]; ok {
			buckets[i].add(c)
		}
	}
	return buckets
}

type Contributor struct {
	MemberID string `json:"adherent_id"`
	Nom      string `json:"nom"`
	Prenom   string `json:"prenom"`
	Total    int64  `json:"total"`
	Count    int    `json:"count"`
}

// TopContributors ranks members by amount given; ties keep the order in which members first appear.
func TopContributors(cs []contribution.Contribution, n int) []Contributor {
	if n <= 0 {
		n = DefaultTop
	}
	var ranked []Contributor
	index := make(map[string]int)
	for _, c := range cs {
		i, ok := index[c.MemberID]
		if !ok {
			i = len(ranked)
			index[c.MemberID] = i
			ranked = append(ranked, Contributor{MemberID: c.MemberID, Nom: c.Nom, Prenom: c.Prenom})
		}
		ranked[i].Total += c.Montant
		ranked[i].Count++
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Total > ranked[j].Total })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if ranked == nil {
		ranked = []Contributor{}
	}
	return ranked
}

type PeriodKind string

// Periods
const (
	PeriodMonth     PeriodKind = "month"
	PeriodTrimester PeriodKind = "trimester"
	PeriodYear      PeriodKind = "year"
)

func ParsePeriod(s string) (PeriodKind, bool) {
	switch k := PeriodKind(s); k {
	case PeriodMonth, PeriodTrimester, PeriodYear:
		return k, true
	case "":
		return PeriodMonth, true
	}
	return "", false
}

func (k PeriodKind) Label() string {
	switch k {
	case PeriodTrimester:
		return "Trimestre"
	case PeriodYear:
		return "Année"
	}
	return "Mois"
}

// Period returns the trailing window ending today: one month, three months or one year.
func Period(kind PeriodKind, now time.Time) (from, to time.Time) {
	to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch kind {
	case PeriodTrimester:
		from = to.AddDate(0, -3, 0)
	case PeriodYear:
		from = to.AddDate(-1, 0, 0)
	default:
		from = to.AddDate(0, -1, 0)
	}
	return from, to
}

type Summary struct {
	Total   int64         `json:"total"`
	Count   int           `json:"count"`
	Average float64       `json:"average"`
	ByType  TypeBreakdown `json:"by_type"`
}

func Summarize(cs []contribution.Contribution) Summary {
	s := Summary{ByType: ByType(cs), Count: len(cs)}
	s.Total = s.ByType.Total
	if s.Count > 0 {
		s.Average = round2(float64(s.Total) / float64(s.Count))
	}
	return s
}

type DuesStats struct {
	Records     int     `json:"total_mpandray"`
	Paid        int     `json:"paiements"`
	PaidAmount  int64   `json:"montant_total"`
	PaymentRate float64 `json:"taux_paiement"`
}

// ComputeDuesStats summarizes the dues records of a period; only paid records count in PaidAmount.
func ComputeDuesStats(records []dues.Record) DuesStats {
	st := DuesStats{Records: len(records)}
	for _, r := range records {
		if r.Paye {
			st.Paid++
			st.PaidAmount += r.Montant
		}
	}
	if st.Records > 0 {
		st.PaymentRate = round2(float64(st.Paid) / float64(st.Records) * 100)
	}
	return st
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
