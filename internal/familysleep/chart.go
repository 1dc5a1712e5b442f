package familysleep

import (
	"strconv"
	"strings"
	"time"

	"github.com/tractdb/tractdb-server/internal/model"
)

// Observation window for a night of sleep, as minutes of day. The window
// starts at 17:00 on day D and wraps midnight to end at 08:00 on D+1.
const (
	DefaultWindowStart = 17 * 60
	DefaultWindowEnd   = 8 * 60
)

// chartHit is the value written into a matched bucket. The renderer
// treats every stage identically, so any stage match flattens to 3.
const chartHit = 3

// ComputeMinutesChartData buckets one night's minute-level samples onto
// the default observation window.
func ComputeMinutesChartData(minutes []model.SleepMinute) *model.MinutesChartData {
	return ComputeMinutesChartDataWindow(minutes, DefaultWindowStart, DefaultWindowEnd)
}

// ComputeMinutesChartDataWindow buckets samples onto a fixed grid of one
// bucket per minute from windowStart through midnight to windowEnd. For
// each sleep stage it emits a series of the window's length where matched
// buckets hold the plotting sentinel, plus one formatted clock label per
// bucket. A sample whose clock time is at or after windowStart belongs to
// the pre-midnight portion; earlier clock times are post-midnight.
// Indices outside the window are dropped.
func ComputeMinutesChartDataWindow(minutes []model.SleepMinute, windowStart, windowEnd int) *model.MinutesChartData {
	minutesToPlot := (minutesPerDay - windowStart) + windowEnd
	minutesBeforeMidnight := minutesPerDay - windowStart

	series := [3][]int{}
	for stage := range series {
		series[stage] = make([]int, minutesToPlot)
	}

	for _, sample := range minutes {
		stage, err := sample.Value.Int64()
		if err != nil || stage < 1 || stage > 3 {
			continue
		}
		sampleMinute, ok := parseClockMinute(sample.DateTime)
		if !ok {
			continue
		}

		var index int
		if sampleMinute >= windowStart {
			// Not yet midnight: the index is the time since the window
			// opened. A sample exactly at the window start lands in
			// bucket 0.
			index = sampleMinute - windowStart
		} else {
			index = minutesBeforeMidnight + sampleMinute
		}

		if index >= 0 && index < minutesToPlot {
			series[stage-1][index] = chartHit
		}
	}

	labels := make([]string, minutesToPlot)
	base := time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(windowStart) * time.Minute)
	for i := range labels {
		labels[i] = base.Add(time.Duration(i) * time.Minute).Format("03:04 PM")
	}

	return &model.MinutesChartData{
		One:    series[0],
		Two:    series[1],
		Three:  series[2],
		Labels: labels,
	}
}

const minutesPerDay = 24 * 60

// parseClockMinute converts "HH:MM" to minutes since midnight. A trailing
// seconds field, as emitted by the Fitbit API, is ignored.
func parseClockMinute(clock string) (int, bool) {
	hh, rest, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, false
	}
	mm, _, _ := strings.Cut(rest, ":")
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
