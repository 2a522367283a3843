package report_test

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/dues"
	"github.com/trezcool/mpiangona/core/report"
)

func contrib(memberID, nom string, t contribution.Type, amount int64, y int, m time.Month, d int) contribution.Contribution {
	return contribution.Contribution{
		MemberID: memberID, Nom: nom, Prenom: "P" + nom, Type: t, Montant: amount,
		Date: core.NewDate(y, m, d),
	}
}

func TestByType(t *testing.T) {
	cs := []contribution.Contribution{
		contrib("m1", "A", contribution.Dime, 10000, 2024, 3, 1),
		contrib("m2", "B", contribution.Offrande, 2500, 2024, 3, 2),
		contrib("m1", "A", contribution.Dime, 5000, 2024, 3, 3),
		contrib("m3", "C", contribution.Don, 2500, 2024, 3, 4),
	}
	tb := report.ByType(cs)
	assert.Equal(t, int64(20000), tb.Total)
	assert.Equal(t, []report.TypeShare{
		{Type: contribution.Dime, Label: "Dîme", Amount: 15000, Percent: 75},
		{Type: contribution.Offrande, Label: "Offrande", Amount: 2500, Percent: 12.5},
		{Type: contribution.Don, Label: "Don", Amount: 2500, Percent: 12.5},
	}, tb.Shares)

	thirds := report.ByType([]contribution.Contribution{
		contrib("m1", "A", contribution.Dime, 1, 2024, 3, 1),
		contrib("m1", "A", contribution.Offrande, 1, 2024, 3, 1),
		contrib("m1", "A", contribution.Don, 1, 2024, 3, 1),
	})
	assert.Equal(t, 33.33, thirds.Shares[0].Percent)

	empty := report.ByType(nil)
	assert.Equal(t, int64(0), empty.Total)
	require.Len(t, empty.Shares, 3)
	for _, s := range empty.Shares {
		assert.Zero(t, s.Percent)
	}
}

func TestMonthly(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	cs := []contribution.Contribution{
		contrib("m1", "A", contribution.Dime, 100, 2024, 3, 1),
		contrib("m1", "A", contribution.Don, 50, 2024, 3, 31),
		contrib("m2", "B", contribution.Offrande, 70, 2023, 4, 1),
		contrib("m2", "B", contribution.Offrande, 999, 2023, 3, 31), // outside the window
	}
	buckets := report.Monthly(cs, now)
	require.Len(t, buckets, 12)
	assert.Equal(t, "2023-04", buckets[0].Key)
	assert.Equal(t, "2024-03", buckets[11].Key)
	assert.Equal(t, report.MonthBucket{Key: "2023-04", Offrandes: 70, Total: 70}, buckets[0])
	assert.Equal(t, report.MonthBucket{Key: "2024-03", Dimes: 100, Dons: 50, Total: 150}, buckets[11])
	for _, b := range buckets[1:11] {
		assert.Zero(t, b.Total, b.Key)
	}

	// year boundary
	jan := report.Monthly(nil, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-02", jan[0].Key)
	assert.Equal(t, "2025-01", jan[11].Key)

	assert.Empty(t, report.Range(cs, now, now.AddDate(0, -1, 0)))

	long := report.Range(nil, time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC))
	require.Len(t, long, report.MaxSpanYears*12+1)
	assert.Equal(t, "1900-01", long[0].Key)
	assert.Equal(t, "1910-01", long[len(long)-1].Key)
}

func TestTopContributors(t *testing.T) {
	var cs []contribution.Contribution
	for i := 0; i < 12; i++ {
		cs = append(cs, contrib(fmt.Sprintf("m%02d", i), fmt.Sprintf("N%02d", i), contribution.Don, 100, 2024, 3, 1))
	}
	cs = append(cs, contrib("m05", "N05", contribution.Dime, 100, 2024, 3, 2))

	top := report.TopContributors(cs, 0)
	require.Len(t, top, report.DefaultTop)
	assert.Equal(t, report.Contributor{MemberID: "m05", Nom: "N05", Prenom: "PN05", Total: 200, Count: 2}, top[0])
	var ids []string
	for _, c := range top[1:] {
		ids = append(ids, c.MemberID)
	}
	assert.Equal(t, []string{"m00", "m01", "m02", "m03", "m04", "m06", "m07", "m08", "m09"}, ids, "ties keep their first appearance order")

	assert.Len(t, report.TopContributors(cs, 3), 3)
	assert.NotNil(t, report.TopContributors(nil, 3))
}

func TestPeriod(t *testing.T) {
	now := time.Date(2024, time.May, 31, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		raw  string
		kind report.PeriodKind
		from time.Time
	}{
		{raw: "", kind: report.PeriodMonth, from: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{raw: "month", kind: report.PeriodMonth, from: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{raw: "trimester", kind: report.PeriodTrimester, from: time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)},
		{raw: "year", kind: report.PeriodYear, from: time.Date(2023, time.May, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			kind, ok := report.ParsePeriod(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
			from, to := report.Period(kind, now)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC), to)
		})
	}

	_, ok := report.ParsePeriod("week")
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	s := report.Summarize([]contribution.Contribution{
		contrib("m1", "A", contribution.Dime, 1000, 2024, 3, 1),
		contrib("m2", "B", contribution.Don, 500, 2024, 3, 1),
		contrib("m2", "B", contribution.Don, 500, 2024, 3, 1),
	})
	assert.Equal(t, int64(2000), s.Total)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 666.67, s.Average)

	assert.Zero(t, report.Summarize(nil).Average)
}

func TestComputeDuesStats(t *testing.T) {
	st := report.ComputeDuesStats([]dues.Record{
		{Montant: 500, Paye: true},
		{Montant: 1000, Paye: true},
		{Montant: 500},
	})
	assert.Equal(t, report.DuesStats{Records: 3, Paid: 2, PaidAmount: 1500, PaymentRate: 66.67}, st)
	assert.Equal(t, report.DuesStats{}, report.ComputeDuesStats(nil))
}

func TestWriteCSV(t *testing.T) {
	cs := []contribution.Contribution{
		{Nom: "Rakoto", Prenom: "Jean", Type: contribution.Dime, Montant: 10000, Date: core.NewDate(2024, time.March, 2)},
		{Nom: "Rasoa", Prenom: "Marie", Type: contribution.Offrande, Montant: 2500, Date: core.NewDate(2024, time.March, 10)},
		{Nom: "Rakoto", Prenom: "Jean", Type: contribution.Don, Montant: 7500, Date: core.NewDate(2024, time.March, 15)},
	}
	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, cs, report.Summarize(cs)))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "contributions_csv", buf.Bytes())
}
