package model

import (
	"encoding/json"
	"fmt"
)

// PersonasDocID is the singleton per-account roster of tracked people.
const PersonasDocID = "familysleep_personas"

// FitbitTokensDocID holds the stored Fitbit OAuth tokens for the account.
const FitbitTokensDocID = "fitbit_tokens"

// Persona is one tracked family member's sleep-tracking profile.
type Persona struct {
	Name   string `json:"name"`
	Fitbit string `json:"fitbit"`
	// Unix timestamps maintained by the fitbit refresh pass.
	FitbitRenewed              int64 `json:"fitbit_renewed,omitempty"`
	FitbitUpdated              int64 `json:"fitbit_updated,omitempty"`
	FitbitOldestAllowableQuery int64 `json:"fitbit_oldest_allowable_query,omitempty"`
}

// PersonasDoc is the decoded form of the personas document.
type PersonasDoc struct {
	Personas map[string]Persona `json:"personas"`
}

// SleepMinute is one minute-level sample from a raw sleep log. Value is
// the sleep stage, "1", "2" or "3", as delivered by Fitbit.
type SleepMinute struct {
	DateTime string      `json:"dateTime"`
	Value    json.Number `json:"value"`
}

// SleepLog is the decoded form of a raw fitbit-<device>-sleep-<date>
// document.
type SleepLog struct {
	LogID     json.Number   `json:"logId"`
	Duration  json.Number   `json:"duration"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
	Minutes   []SleepMinute `json:"minuteData"`
}

// MinutesChartData is the fixed-grid chart form of one night's samples:
// one series per sleep stage plus a formatted label per bucket.
type MinutesChartData struct {
	One    []int    `json:"one"`
	Two    []int    `json:"two"`
	Three  []int    `json:"three"`
	Labels []string `json:"labels"`
}

// DaySummary is the derived per-person per-date summary. It is never
// persisted. When no raw log exists for the date, FID is "" and Duration,
// StartTime and EndTime hold the sentinel -1; the raw log's own field
// types are preserved otherwise, so the fields are deliberately untyped.
type DaySummary struct {
	PID         string            `json:"pid"`
	Name        string            `json:"name"`
	DateOfSleep string            `json:"dateOfSleep"`
	FID         any               `json:"fid"`
	Duration    any               `json:"duration"`
	StartTime   any               `json:"startTime"`
	EndTime     any               `json:"endTime"`
	MinuteData  *MinutesChartData `json:"minuteData,omitempty"`
}

// SleepDocID builds the raw sleep log document id for a device and date.
func SleepDocID(device, date string) string {
	return fmt.Sprintf("fitbit-%s-sleep-%s", device, date)
}

// DecodeDocument re-marshals a schema-less document into a typed value.
func DecodeDocument(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
