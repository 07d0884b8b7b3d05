package pairing

import (
	"time"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
	"github.com/MikeSquared-Agency/tempo/internal/chat"
)

// Tally counts what happened to the messages of a stream.
type Tally struct {
	Customers       int // customer messages seen, excluded included
	Agents          int // agent messages seen
	Excluded        int // customer messages dropped by the exclusion filter
	Anomalies       int // customer messages dropped because a reply was not strictly later
	Censored        int // customer messages still waiting when the stream ended
	UnmatchedAgents int // agent messages that found no waiting inquiry
}

// UnmatchedCustomers counts eligible customer messages that produced no pair.
func (t Tally) UnmatchedCustomers() int {
	return t.Censored + t.Anomalies
}

func (t Tally) add(o Tally) Tally {
	return Tally{
		Customers:       t.Customers + o.Customers,
		Agents:          t.Agents + o.Agents,
		Excluded:        t.Excluded + o.Excluded,
		Anomalies:       t.Anomalies + o.Anomalies,
		Censored:        t.Censored + o.Censored,
		UnmatchedAgents: t.UnmatchedAgents + o.UnmatchedAgents,
	}
}

// Result is the outcome of pairing one stream or the merge of several.
//
// Days breaks the tally down by calendar date. Customer-side counts are dated
// by the customer message and agent-side counts by the agent message, the same
// way pairs are dated by their inquiry.
type Result struct {
	Pairs []chat.ResponsePair
	Tally
	Days map[string]Tally
}

func (r *Result) count(at time.Time, bump func(*Tally)) {
	bump(&r.Tally)
	if r.Days == nil {
		r.Days = make(map[string]Tally)
	}
	d := chat.DateOf(at)
	t := r.Days[d]
	bump(&t)
	r.Days[d] = t
}

// MergeAll sums results in order. Pairs keep the order of rs and are copied
// once.
func MergeAll(rs []Result) Result {
	n := 0
	for _, r := range rs {
		n += len(r.Pairs)
	}
	out := Result{Pairs: make([]chat.ResponsePair, 0, n)}
	for _, r := range rs {
		out.Pairs = append(out.Pairs, r.Pairs...)
		out.Tally = out.Tally.add(r.Tally)
		for d, t := range r.Days {
			if out.Days == nil {
				out.Days = make(map[string]Tally)
			}
			out.Days[d] = out.Days[d].add(t)
		}
	}
	return out
}

// Within restricts r to the dates in [from, to]. Pairs are kept by their
// inquiry date and the tally is rebuilt from the days in range, so
// Pairs+UnmatchedCustomers+Excluded still equals Customers. Empty bounds are
// open.
func (r Result) Within(from, to string) Result {
	if from == "" && to == "" {
		return r
	}
	out := Result{Pairs: aggregate.FilterByDate(r.Pairs, from, to)}
	for d, t := range r.Days {
		if !chat.InRange(d, from, to) {
			continue
		}
		if out.Days == nil {
			out.Days = make(map[string]Tally)
		}
		out.Days[d] = t
		out.Tally = out.Tally.add(t)
	}
	return out
}
