package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepDocID(t *testing.T) {
	assert.Equal(t, "fitbit-ABC123-sleep-2016-03-14", SleepDocID("ABC123", "2016-03-14"))
}

func TestDecodeDocument(t *testing.T) {
	t.Run("decodes a raw sleep log", func(t *testing.T) {
		doc := Document{
			"_id":       "fitbit-dev-sleep-2016-03-14",
			"logId":     json.Number("123"),
			"duration":  json.Number("28440000"),
			"startTime": "2016-03-13T22:30:00.000",
			"endTime":   "2016-03-14T06:24:00.000",
			"minuteData": []any{
				map[string]any{"dateTime": "22:30", "value": "1"},
			},
		}

		var log SleepLog
		require.NoError(t, DecodeDocument(doc, &log))

		assert.Equal(t, json.Number("123"), log.LogID)
		assert.Equal(t, json.Number("28440000"), log.Duration)
		require.Len(t, log.Minutes, 1)
		assert.Equal(t, "22:30", log.Minutes[0].DateTime)
		assert.Equal(t, json.Number("1"), log.Minutes[0].Value)
	})

	t.Run("decodes the personas roster", func(t *testing.T) {
		doc := Document{
			"_id": PersonasDocID,
			"personas": map[string]any{
				"p1": map[string]any{
					"name":           "Alice",
					"fitbit":         "dev1",
					"fitbit_renewed": 1458000000,
				},
			},
		}

		var personas PersonasDoc
		require.NoError(t, DecodeDocument(doc, &personas))

		persona, ok := personas.Personas["p1"]
		require.True(t, ok)
		assert.Equal(t, "Alice", persona.Name)
		assert.Equal(t, "dev1", persona.Fitbit)
		assert.Equal(t, int64(1458000000), persona.FitbitRenewed)
	})

	t.Run("rejects mismatched shapes", func(t *testing.T) {
		doc := Document{"personas": "not-an-object"}
		var personas PersonasDoc
		assert.Error(t, DecodeDocument(doc, &personas))
	})
}
