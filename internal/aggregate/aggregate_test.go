package aggregate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/tempo/internal/chat"
)

func TestBands_Edges(t *testing.T) {
	tests := []struct {
		latency time.Duration
		three   int
		four    int
	}{
		{0, 0, 0},
		{10 * time.Second, 0, 0},
		{10*time.Second + time.Millisecond, 1, 1},
		{30 * time.Second, 1, 1},
		{31 * time.Second, 2, 2},
		{60 * time.Second, 2, 2},
		{61 * time.Second, 2, 3},
		{2 * time.Hour, 2, 3},
	}
	for _, tt := range tests {
		if got := ThreeBands.Index(tt.latency); got != tt.three {
			t.Errorf("ThreeBands.Index(%s) = %d, want %d", tt.latency, got, tt.three)
		}
		if got := FourBands.Index(tt.latency); got != tt.four {
			t.Errorf("FourBands.Index(%s) = %d, want %d", tt.latency, got, tt.four)
		}
	}
	if ThreeBands.Len() != 3 || FourBands.Len() != 4 {
		t.Errorf("unexpected band counts %d/%d", ThreeBands.Len(), FourBands.Len())
	}
}

func TestParseBands(t *testing.T) {
	if b, err := ParseBands("four"); err != nil || b.Len() != 4 {
		t.Fatalf("ParseBands(four) = %v, %v", b.Name, err)
	}
	if b, err := ParseBands(""); err != nil || b.Len() != 3 {
		t.Fatalf("ParseBands('') = %v, %v", b.Name, err)
	}
	if _, err := ParseBands("five"); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}

func TestAggregate_TwoExchanges(t *testing.T) {
	day := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	pairs := []chat.ResponsePair{
		pair("c1", day, 8*time.Second),
		pair("c1", day.Add(5*time.Minute), 25*time.Second),
	}

	s := Aggregate(pairs, ThreeBands)
	if len(s.PerDate) != 1 {
		t.Fatalf("expected 1 day, got %d", len(s.PerDate))
	}
	d := s.PerDate[0]
	if d.Date != "2025-10-01" || d.Total != 2 {
		t.Fatalf("unexpected day %s total %d", d.Date, d.Total)
	}
	if d.Counts[0] != 1 || d.Counts[1] != 1 || d.Counts[2] != 0 {
		t.Errorf("counts = %v, want [1 1 0]", d.Counts)
	}
	if d.Min != 8*time.Second || d.Max != 25*time.Second {
		t.Errorf("min/max = %s/%s", d.Min, d.Max)
	}
	if d.Median != 16500*time.Millisecond || d.Mean != 16500*time.Millisecond {
		t.Errorf("median/mean = %s/%s, want 16.5s", d.Median, d.Mean)
	}
	if d.Slowest.Latency != 25*time.Second {
		t.Errorf("slowest = %s, want 25s", d.Slowest.Latency)
	}
	pct, err := d.Percent(0)
	if err != nil || pct != 50 {
		t.Errorf("Percent(0) = %v, %v", pct, err)
	}
}

func TestAggregate_PerDateAndCustomer(t *testing.T) {
	d1 := time.Date(2025, 10, 2, 9, 0, 0, 0, time.UTC)
	d0 := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	pairs := []chat.ResponsePair{
		pair("zeta", d1, 5*time.Second),
		pair("alpha", d0, 40*time.Second),
		pair("alpha", d0.Add(time.Hour), 20*time.Second),
		pair("alpha", d1.Add(time.Hour), 90*time.Second),
	}

	s := Aggregate(pairs, FourBands)

	if len(s.PerDate) != 2 || s.PerDate[0].Date != "2025-10-01" || s.PerDate[1].Date != "2025-10-02" {
		t.Fatalf("unexpected dates %+v", s.PerDate)
	}
	if s.Overall.Total != 4 || s.Overall.Date != OverallDate {
		t.Errorf("overall total = %d (%s)", s.Overall.Total, s.Overall.Date)
	}
	if s.Overall.Max != 90*time.Second {
		t.Errorf("overall max = %s", s.Overall.Max)
	}
	// Sum of per-date totals equals overall.
	var sum int
	for _, d := range s.PerDate {
		sum += d.Total
	}
	if sum != s.Overall.Total {
		t.Errorf("per-date totals %d != overall %d", sum, s.Overall.Total)
	}

	if len(s.PerCustomer) != 2 || s.PerCustomer[0].ConversationID != "alpha" {
		t.Fatalf("unexpected customers %+v", s.PerCustomer)
	}
	alpha := s.PerCustomer[0]
	if alpha.Total != 3 || alpha.Median != 40*time.Second || alpha.Min != 20*time.Second {
		t.Errorf("alpha stats = %+v", alpha)
	}

	d, ok := s.Date("2025-10-02")
	if !ok || d.Total != 2 || d.Counts[0] != 1 || d.Counts[3] != 1 {
		t.Errorf("Date(2025-10-02) = %+v, %v", d, ok)
	}
	if _, ok := s.Date("2025-10-03"); ok {
		t.Error("expected missing date")
	}
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, ThreeBands)
	if len(s.PerDate) != 0 || s.Overall.Total != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
	if _, err := s.Overall.Percent(0); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if len(s.Overall.Counts) != 3 {
		t.Errorf("empty group still carries one count per band, got %d", len(s.Overall.Counts))
	}
}

func TestPercent_OutOfRange(t *testing.T) {
	d := DateStats{Total: 1, Counts: []int{1, 0, 0}}
	if _, err := d.Percent(3); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if _, err := d.Percent(3); errors.Is(err, ErrNoData) {
		t.Fatal("out of range must not be reported as no data")
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []time.Duration
		want time.Duration
	}{
		{nil, 0},
		{[]time.Duration{3}, 3},
		{[]time.Duration{1, 3}, 2},
		{[]time.Duration{1, 2, 9}, 2},
		{[]time.Duration{1, 2, 4, 9}, 3},
	}
	for _, tt := range tests {
		if got := median(tt.in); got != tt.want {
			t.Errorf("median(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPercentsSumToHundred(t *testing.T) {
	base := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	var pairs []chat.ResponsePair
	for i, sec := range []int{1, 12, 12, 45, 70, 7, 300} {
		pairs = append(pairs, pair("c", base.Add(time.Duration(i)*time.Minute), time.Duration(sec)*time.Second))
	}
	d := Aggregate(pairs, FourBands).Overall
	var total float64
	for i := range d.Counts {
		p, err := d.Percent(i)
		if err != nil {
			t.Fatalf("Percent(%d): %v", i, err)
		}
		total += p
	}
	if math.Abs(total-100) > 1e-9 {
		t.Errorf("percentages sum to %f", total)
	}
}

func TestFilterByDate(t *testing.T) {
	pairs := []chat.ResponsePair{
		pair("c", time.Date(2025, 9, 30, 23, 0, 0, 0, time.UTC), time.Second),
		pair("c", time.Date(2025, 10, 1, 1, 0, 0, 0, time.UTC), time.Second),
		pair("c", time.Date(2025, 10, 3, 1, 0, 0, 0, time.UTC), time.Second),
	}
	if got := FilterByDate(pairs, "2025-10-01", "2025-10-01"); len(got) != 1 {
		t.Errorf("single day: got %d pairs", len(got))
	}
	if got := FilterByDate(pairs, "2025-10-01", ""); len(got) != 2 {
		t.Errorf("open end: got %d pairs", len(got))
	}
	if got := FilterByDate(pairs, "", "2025-10-01"); len(got) != 2 {
		t.Errorf("open start: got %d pairs", len(got))
	}
	if got := FilterByDate(pairs, "", ""); len(got) != 3 {
		t.Errorf("no bounds: got %d pairs", len(got))
	}
}

func pair(conv string, at time.Time, latency time.Duration) chat.ResponsePair {
	c := chat.Message{ConversationID: conv, ID: "q", Role: chat.RoleCustomer, Timestamp: at}
	a := chat.Message{ConversationID: conv, ID: "a", Role: chat.RoleAgent, Timestamp: at.Add(latency)}
	p, ok := chat.NewResponsePair(c, a)
	if !ok {
		panic("pair: non-positive latency")
	}
	return p
}
