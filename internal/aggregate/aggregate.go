// Package aggregate reduces response pairs into per-day, per-customer and
// overall latency statistics.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MikeSquared-Agency/tempo/internal/chat"
)

// ErrNoData is returned when a ratio is requested over an empty group.
var ErrNoData = errors.New("aggregate: no data")

// OverallDate labels the DateStats that covers every pair.
const OverallDate = "overall"

// DateStats summarizes the pairs of one calendar day (or of all days for the
// overall row).
type DateStats struct {
	Date   string
	Total  int
	Counts []int // one per band

	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	Median time.Duration

	// Slowest is the pair with the maximum latency. Zero when Total is 0.
	Slowest chat.ResponsePair
}

// Percent returns the share of band i as a percentage of Total.
func (d DateStats) Percent(i int) (float64, error) {
	if d.Total == 0 {
		return 0, ErrNoData
	}
	if i < 0 || i >= len(d.Counts) {
		return 0, fmt.Errorf("band %d out of range [0,%d)", i, len(d.Counts))
	}
	return float64(d.Counts[i]) * 100 / float64(d.Total), nil
}

// CustomerStats summarizes the pairs of one conversation.
type CustomerStats struct {
	ConversationID string
	Total          int
	Min            time.Duration
	Max            time.Duration
	Mean           time.Duration
	Median         time.Duration
}

// Summary is the full aggregation of a run.
type Summary struct {
	Bands       Bands
	PerDate     []DateStats // ascending by date
	Overall     DateStats
	PerCustomer []CustomerStats // ascending by conversation id
}

// Date returns the stats for day d (YYYY-MM-DD).
func (s Summary) Date(d string) (DateStats, bool) {
	i := sort.Search(len(s.PerDate), func(i int) bool { return s.PerDate[i].Date >= d })
	if i < len(s.PerDate) && s.PerDate[i].Date == d {
		return s.PerDate[i], true
	}
	return DateStats{}, false
}

// Aggregate groups pairs by customer-message date and by conversation. The
// input slice is not modified.
func Aggregate(pairs []chat.ResponsePair, bands Bands) Summary {
	byDate := make(map[string][]chat.ResponsePair)
	byCustomer := make(map[string][]time.Duration)
	for _, p := range pairs {
		d := p.Date()
		byDate[d] = append(byDate[d], p)
		byCustomer[p.ConversationID()] = append(byCustomer[p.ConversationID()], p.Latency)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	perDate := make([]DateStats, 0, len(dates))
	for _, d := range dates {
		perDate = append(perDate, dateStats(d, byDate[d], bands))
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	perCustomer := make([]CustomerStats, 0, len(ids))
	for _, id := range ids {
		lat := byCustomer[id]
		st := describe(lat)
		perCustomer = append(perCustomer, CustomerStats{
			ConversationID: id,
			Total:          len(lat),
			Min:            st.min,
			Max:            st.max,
			Mean:           st.mean,
			Median:         st.median,
		})
	}

	return Summary{
		Bands:       bands,
		PerDate:     perDate,
		Overall:     dateStats(OverallDate, pairs, bands),
		PerCustomer: perCustomer,
	}
}

// FilterByDate keeps pairs whose customer-message date lies in [from, to].
// Either bound may be empty to leave that side open.
func FilterByDate(pairs []chat.ResponsePair, from, to string) []chat.ResponsePair {
	if from == "" && to == "" {
		return pairs
	}
	out := make([]chat.ResponsePair, 0, len(pairs))
	for _, p := range pairs {
		if chat.InRange(p.Date(), from, to) {
			out = append(out, p)
		}
	}
	return out
}

func dateStats(date string, pairs []chat.ResponsePair, bands Bands) DateStats {
	ds := DateStats{
		Date:   date,
		Total:  len(pairs),
		Counts: make([]int, bands.Len()),
	}
	if len(pairs) == 0 {
		return ds
	}

	lat := make([]time.Duration, len(pairs))
	slowest := 0
	for i, p := range pairs {
		lat[i] = p.Latency
		ds.Counts[bands.Index(p.Latency)]++
		if p.Latency > pairs[slowest].Latency {
			slowest = i
		}
	}
	st := describe(lat)
	ds.Min, ds.Max, ds.Mean, ds.Median = st.min, st.max, st.mean, st.median
	ds.Slowest = pairs[slowest]
	return ds
}

type description struct {
	min, max, mean, median time.Duration
}

func describe(values []time.Duration) description {
	n := len(values)
	if n == 0 {
		return description{}
	}
	sorted := make([]time.Duration, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, v := range sorted {
		sum += v
	}
	return description{
		min:    sorted[0],
		max:    sorted[n-1],
		mean:   sum / time.Duration(n),
		median: median(sorted),
	}
}

// median of an ascending slice; the middle pair is averaged for even lengths.
func median(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
