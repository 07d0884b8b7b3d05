// Package report renders run results as text tables, chat summaries and CSV files.
package report

import (
	"errors"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
)

// TimeLayout is used for message timestamps in reports and exports.
const TimeLayout = "2006-01-02 03:04:05 PM"

// NoData is printed where a ratio over an empty group is undefined.
const NoData = "no data"

func formatFloat(value float64, decimals int) string {
	return strconv.FormatFloat(value, 'f', decimals, 64)
}

func seconds(d time.Duration) string {
	return formatFloat(d.Seconds(), 2)
}

func minutes(d time.Duration) string {
	return formatFloat(d.Minutes(), 2)
}

// humanDuration renders a latency compactly: 8.0s, 4m05s, 2h13m.
func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return formatFloat(d.Seconds(), 1) + "s"
	case d < time.Hour:
		m := int(d / time.Minute)
		s := int((d % time.Minute) / time.Second)
		return strconv.Itoa(m) + "m" + pad2(s) + "s"
	default:
		h := int(d / time.Hour)
		m := int((d % time.Hour) / time.Minute)
		return strconv.Itoa(h) + "h" + pad2(m) + "m"
	}
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// percent formats band i of d, or NoData for an empty group.
func percent(d aggregate.DateStats, i int) string {
	p, err := d.Percent(i)
	if errors.Is(err, aggregate.ErrNoData) {
		return NoData
	}
	if err != nil {
		return "-"
	}
	return formatFloat(p, 1) + "%"
}
