package familysleep

import (
	"time"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/model"
)

// Docs is the document map the aggregators operate on, keyed by document
// id. It must contain the personas document and whatever raw sleep logs
// the caller prefetched; the aggregators themselves perform no I/O.
type Docs map[string]model.Document

const dateLayout = "2006-01-02"

// Summaries maps pid -> date -> derived daily summary.
type Summaries map[string]map[string]model.DaySummary

func (docs Docs) personas() (*model.PersonasDoc, error) {
	raw, ok := docs[model.PersonasDocID]
	if !ok {
		return nil, apperrors.NotFound("personas document")
	}
	var personas model.PersonasDoc
	if err := model.DecodeDocument(raw, &personas); err != nil {
		return nil, apperrors.Internal("decode personas document").WithCause(err)
	}
	return &personas, nil
}

// ComputeSingleDaily derives one person's summary for one date. A date
// with no raw sleep log yields the sentinel summary; chart data is only
// computed when requested.
func ComputeSingleDaily(docs Docs, pid, date string, withChartData bool) (Summaries, error) {
	personas, err := docs.personas()
	if err != nil {
		return nil, err
	}
	persona, ok := personas.Personas[pid]
	if !ok {
		return nil, apperrors.NotFound("persona")
	}

	summary := model.DaySummary{
		PID:         pid,
		Name:        persona.Name,
		DateOfSleep: date,
		FID:         "",
		Duration:    -1,
		StartTime:   -1,
		EndTime:     -1,
	}

	if raw, ok := docs[model.SleepDocID(persona.Fitbit, date)]; ok {
		var log model.SleepLog
		if err := model.DecodeDocument(raw, &log); err != nil {
			return nil, apperrors.Internal("decode sleep log").WithCause(err)
		}

		summary.FID = log.LogID
		summary.Duration = log.Duration
		summary.StartTime = log.StartTime
		summary.EndTime = log.EndTime

		if withChartData {
			summary.MinuteData = ComputeMinutesChartData(log.Minutes)
		}
	}

	return Summaries{pid: {date: summary}}, nil
}

// ComputeSingleWeekly derives one person's summaries for date and the six
// preceding days.
func ComputeSingleWeekly(docs Docs, pid, date string, withChartData bool) (Summaries, error) {
	dates, err := weekEndingAt(date)
	if err != nil {
		return nil, err
	}

	result := Summaries{pid: {}}
	for _, current := range dates {
		daily, err := ComputeSingleDaily(docs, pid, current, withChartData)
		if err != nil {
			return nil, err
		}
		result[pid][current] = daily[pid][current]
	}
	return result, nil
}

// ComputeFamilyDaily derives every persona's summary for one date. Chart
// arrays are omitted at family scope.
func ComputeFamilyDaily(docs Docs, date string) (Summaries, error) {
	personas, err := docs.personas()
	if err != nil {
		return nil, err
	}

	result := Summaries{}
	for pid := range personas.Personas {
		daily, err := ComputeSingleDaily(docs, pid, date, false)
		if err != nil {
			return nil, err
		}
		result[pid] = map[string]model.DaySummary{date: daily[pid][date]}
	}
	return result, nil
}

// ComputeFamilyWeekly derives the full roster x 7-day cross product,
// without chart data.
func ComputeFamilyWeekly(docs Docs, date string) (Summaries, error) {
	personas, err := docs.personas()
	if err != nil {
		return nil, err
	}
	dates, err := weekEndingAt(date)
	if err != nil {
		return nil, err
	}

	result := Summaries{}
	for pid := range personas.Personas {
		result[pid] = map[string]model.DaySummary{}
		for _, current := range dates {
			daily, err := ComputeSingleDaily(docs, pid, current, false)
			if err != nil {
				return nil, err
			}
			result[pid][current] = daily[pid][current]
		}
	}
	return result, nil
}

// weekEndingAt lists the seven dates ending at date, oldest first.
func weekEndingAt(date string) ([]string, error) {
	end, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, apperrors.ValidationError("date must be YYYY-MM-DD")
	}

	dates := make([]string, 0, 7)
	for daysBack := 6; daysBack >= 0; daysBack-- {
		dates = append(dates, end.AddDate(0, 0, -daysBack).Format(dateLayout))
	}
	return dates, nil
}
