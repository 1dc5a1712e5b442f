package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tractdb/tractdb-server/internal/config"
	"github.com/tractdb/tractdb-server/internal/couch"
	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/familysleep"
	"github.com/tractdb/tractdb-server/internal/fitbit"
	"github.com/tractdb/tractdb-server/internal/model"
)

// FamilySleepService prefetches the documents an aggregation needs
// through the account's gateway and feeds them to the pure compute
// functions. Before serving, it runs the Fitbit refresh pass so the
// stored raw logs are reasonably current.
type FamilySleepService struct {
	fitbit *fitbit.Client
}

func NewFamilySleepService(fitbitClient *fitbit.Client) *FamilySleepService {
	return &FamilySleepService{fitbit: fitbitClient}
}

func (s *FamilySleepService) FamilyDaily(ctx context.Context, store couch.Store, date string) (familysleep.Summaries, error) {
	s.refreshBestEffort(ctx, store)

	docs, err := s.gatherDocs(ctx, store, "", []string{date})
	if err != nil {
		return nil, err
	}
	return familysleep.ComputeFamilyDaily(docs, date)
}

func (s *FamilySleepService) FamilyWeekly(ctx context.Context, store couch.Store, date string) (familysleep.Summaries, error) {
	s.refreshBestEffort(ctx, store)

	dates, err := weekDates(date)
	if err != nil {
		return nil, err
	}
	docs, err := s.gatherDocs(ctx, store, "", dates)
	if err != nil {
		return nil, err
	}
	return familysleep.ComputeFamilyWeekly(docs, date)
}

func (s *FamilySleepService) SingleDaily(ctx context.Context, store couch.Store, pid, date string) (familysleep.Summaries, error) {
	s.refreshBestEffort(ctx, store)

	docs, err := s.gatherDocs(ctx, store, pid, []string{date})
	if err != nil {
		return nil, err
	}
	return familysleep.ComputeSingleDaily(docs, pid, date, true)
}

func (s *FamilySleepService) SingleWeekly(ctx context.Context, store couch.Store, pid, date string) (familysleep.Summaries, error) {
	s.refreshBestEffort(ctx, store)

	dates, err := weekDates(date)
	if err != nil {
		return nil, err
	}
	docs, err := s.gatherDocs(ctx, store, pid, dates)
	if err != nil {
		return nil, err
	}
	return familysleep.ComputeSingleWeekly(docs, pid, date, true)
}

// gatherDocs fetches the personas document plus every raw sleep log the
// aggregation could need: one per (device, date). pid "" means the whole
// roster. Missing sleep logs are simply absent from the map; a missing
// personas document fails the request.
func (s *FamilySleepService) gatherDocs(ctx context.Context, store couch.Store, pid string, dates []string) (familysleep.Docs, error) {
	personasDoc, err := store.GetDocument(ctx, model.PersonasDocID)
	if err != nil {
		return nil, err
	}

	docs := familysleep.Docs{model.PersonasDocID: personasDoc}

	var personas model.PersonasDoc
	if err := model.DecodeDocument(personasDoc, &personas); err != nil {
		return nil, apperrors.Internal("decode personas document").WithCause(err)
	}

	for currentPID, persona := range personas.Personas {
		if pid != "" && currentPID != pid {
			continue
		}
		for _, date := range dates {
			docID := model.SleepDocID(persona.Fitbit, date)
			exists, err := store.ExistsDocument(ctx, docID)
			if err != nil {
				return nil, err
			}
			if !exists {
				continue
			}
			doc, err := store.GetDocument(ctx, docID)
			if err != nil {
				return nil, err
			}
			docs[docID] = doc
		}
	}

	return docs, nil
}

// refreshBestEffort runs the Fitbit refresh pass and only logs failures;
// an unreachable Fitbit API must not take down reads of stored data.
func (s *FamilySleepService) refreshBestEffort(ctx context.Context, store couch.Store) {
	if s.fitbit == nil {
		return
	}
	if _, err := s.RefreshFitbitData(ctx, store); err != nil {
		log.Warn().Err(err).Msg("fitbit refresh pass failed")
	}
}

// RefreshFitbitData renews stale OAuth tokens and pulls missing sleep
// logs from Fitbit into the account database. It returns the trail of
// steps taken, mirroring what the fitbitquery endpoint reports.
func (s *FamilySleepService) RefreshFitbitData(ctx context.Context, store couch.Store) ([]string, error) {
	logs := []string{"initiating query"}

	if s.fitbit == nil {
		return append(logs, "fitbit not configured"), nil
	}

	personasDoc, tokensDoc, ok, err := s.loadRefreshDocs(ctx, store, &logs)
	if err != nil || !ok {
		return logs, err
	}

	var personas model.PersonasDoc
	if err := model.DecodeDocument(personasDoc, &personas); err != nil {
		return logs, apperrors.Internal("decode personas document").WithCause(err)
	}

	tokens, err := decodeTokens(tokensDoc)
	if err != nil {
		return logs, err
	}
	logs = append(logs, "got personas and tokens")

	for pid, persona := range personas.Personas {
		logs = append(logs, fmt.Sprintf("processing persona %s", persona.Name))

		now := time.Now()
		nowUnix := now.Unix()
		oldestAllowable := persona.FitbitOldestAllowableQuery
		if oldestAllowable == 0 {
			oldestAllowable = now.AddDate(0, 0, -7).Unix()
		}

		logs = append(logs, fmt.Sprintf("time since renewed %d", nowUnix-persona.FitbitRenewed))
		if nowUnix-persona.FitbitRenewed > int64(config.FitbitTokenRenewAfter.Seconds()) {
			logs = append(logs, "DO RENEW")

			token, ok := tokens[persona.Fitbit]
			if !ok {
				logs = append(logs, fmt.Sprintf("no token for device %s", persona.Fitbit))
				continue
			}

			renewed, err := s.fitbit.RefreshToken(ctx, token.RefreshToken)
			if err != nil {
				return logs, err
			}
			tokens[renewed.UserID] = *renewed

			if err := storeTokens(ctx, store, tokensDoc, tokens); err != nil {
				return logs, err
			}
			if err := setPersonaTimestamp(ctx, store, personasDoc, pid, "fitbit_renewed", nowUnix); err != nil {
				return logs, err
			}
		}

		logs = append(logs, fmt.Sprintf("time since updated %d", nowUnix-persona.FitbitUpdated))
		if nowUnix-persona.FitbitUpdated > int64(config.FitbitUpdateAfter.Seconds()) {
			logs = append(logs, "DO UPDATE")

			token, ok := tokens[persona.Fitbit]
			if !ok {
				logs = append(logs, fmt.Sprintf("no token for device %s", persona.Fitbit))
				continue
			}

			dates, err := s.datesToQuery(ctx, store, persona.Fitbit, now, oldestAllowable)
			if err != nil {
				return logs, err
			}

			// Oldest first, so a failure partway never leaves recent
			// data with gaps behind it.
			for i := len(dates) - 1; i >= 0; i-- {
				date := dates[i]
				logs = append(logs, fmt.Sprintf("query date %s", date))

				entry, err := s.fitbit.GetSleep(ctx, persona.Fitbit, date, token.AccessToken)
				if err != nil {
					return logs, err
				}
				if entry == nil {
					continue
				}

				logs = append(logs, "storing")
				if err := storeSleepEntry(ctx, store, model.SleepDocID(persona.Fitbit, date), entry); err != nil {
					return logs, err
				}
			}

			if err := setPersonaTimestamp(ctx, store, personasDoc, pid, "fitbit_updated", nowUnix); err != nil {
				return logs, err
			}
			if persona.FitbitOldestAllowableQuery == 0 {
				if err := setPersonaTimestamp(ctx, store, personasDoc, pid, "fitbit_oldest_allowable_query", oldestAllowable); err != nil {
					return logs, err
				}
			}
		}
	}

	return logs, nil
}

// ConfigureFitbit exchanges an OAuth callback code for a token and stores
// it keyed by its Fitbit user_id.
func (s *FamilySleepService) ConfigureFitbit(ctx context.Context, store couch.Store, callbackCode string) error {
	if s.fitbit == nil {
		return apperrors.Internal("fitbit is not configured")
	}
	if callbackCode == "" {
		return apperrors.ValidationError("callback_code is required")
	}

	token, err := s.fitbit.ExchangeCode(ctx, callbackCode)
	if err != nil {
		return err
	}

	exists, err := store.ExistsDocument(ctx, model.FitbitTokensDocID)
	if err != nil {
		return err
	}

	if !exists {
		doc := model.Document{"fitbit_tokens": []fitbit.Token{*token}}
		_, err := store.CreateDocument(ctx, doc, model.FitbitTokensDocID)
		return err
	}

	tokensDoc, err := store.GetDocument(ctx, model.FitbitTokensDocID)
	if err != nil {
		return err
	}
	tokens, err := decodeTokens(tokensDoc)
	if err != nil {
		return err
	}
	tokens[token.UserID] = *token
	return storeTokens(ctx, store, tokensDoc, tokens)
}

func (s *FamilySleepService) loadRefreshDocs(ctx context.Context, store couch.Store, logs *[]string) (personasDoc, tokensDoc model.Document, ok bool, err error) {
	for _, docID := range []string{model.PersonasDocID, model.FitbitTokensDocID} {
		exists, err := store.ExistsDocument(ctx, docID)
		if err != nil {
			return nil, nil, false, err
		}
		if !exists {
			*logs = append(*logs, fmt.Sprintf("no %s document", docID))
			return nil, nil, false, nil
		}
	}

	personasDoc, err = store.GetDocument(ctx, model.PersonasDocID)
	if err != nil {
		return nil, nil, false, err
	}
	tokensDoc, err = store.GetDocument(ctx, model.FitbitTokensDocID)
	if err != nil {
		return nil, nil, false, err
	}
	return personasDoc, tokensDoc, true, nil
}

// datesToQuery lists candidate dates newest-first, bounded by the oldest
// allowable query, and truncated shortly past the newest date already
// stored: anything older than that is stable by now.
func (s *FamilySleepService) datesToQuery(ctx context.Context, store couch.Store, device string, now time.Time, oldestAllowable int64) ([]string, error) {
	oldest := time.Unix(oldestAllowable, 0)

	var dates []string
	for daysBack := 0; daysBack < config.FitbitQueryWindowDays; daysBack++ {
		day := now.AddDate(0, 0, -daysBack)
		if day.Before(oldest) {
			continue
		}
		dates = append(dates, day.Format("2006-01-02"))
	}

	for i, date := range dates {
		exists, err := store.ExistsDocument(ctx, model.SleepDocID(device, date))
		if err != nil {
			return nil, err
		}
		if exists {
			cut := i + config.FitbitQueryOverlapDays + 1
			if cut < len(dates) {
				dates = dates[:cut]
			}
			break
		}
	}

	return dates, nil
}

func storeSleepEntry(ctx context.Context, store couch.Store, docID string, entry fitbit.SleepEntry) error {
	doc := model.Document(entry)

	exists, err := store.ExistsDocument(ctx, docID)
	if err != nil {
		return err
	}
	if exists {
		current, err := store.GetDocument(ctx, docID)
		if err != nil {
			return err
		}
		doc.SetRev(current.Rev())
		_, err = store.UpdateDocument(ctx, docID, doc)
		return err
	}
	_, err = store.CreateDocument(ctx, doc, docID)
	return err
}

func decodeTokens(tokensDoc model.Document) (map[string]fitbit.Token, error) {
	var decoded struct {
		Tokens []fitbit.Token `json:"fitbit_tokens"`
	}
	if err := model.DecodeDocument(tokensDoc, &decoded); err != nil {
		return nil, apperrors.Internal("decode fitbit tokens").WithCause(err)
	}

	tokens := make(map[string]fitbit.Token, len(decoded.Tokens))
	for _, token := range decoded.Tokens {
		tokens[token.UserID] = token
	}
	return tokens, nil
}

func storeTokens(ctx context.Context, store couch.Store, tokensDoc model.Document, tokens map[string]fitbit.Token) error {
	list := make([]fitbit.Token, 0, len(tokens))
	for _, token := range tokens {
		list = append(list, token)
	}
	tokensDoc["fitbit_tokens"] = list

	ref, err := store.UpdateDocument(ctx, tokensDoc.ID(), tokensDoc)
	if err != nil {
		return err
	}
	tokensDoc.SetRev(ref.Rev)
	return nil
}

// setPersonaTimestamp writes one timestamp field on a persona inside the
// personas document and keeps the in-memory document current.
func setPersonaTimestamp(ctx context.Context, store couch.Store, personasDoc model.Document, pid, field string, value int64) error {
	personas, ok := personasDoc["personas"].(map[string]any)
	if !ok {
		return apperrors.Internal("malformed personas document")
	}
	persona, ok := personas[pid].(map[string]any)
	if !ok {
		return apperrors.Internal("malformed personas document")
	}
	persona[field] = value

	ref, err := store.UpdateDocument(ctx, personasDoc.ID(), personasDoc)
	if err != nil {
		return err
	}
	personasDoc.SetRev(ref.Rev)
	return nil
}

func weekDates(date string) ([]string, error) {
	end, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, apperrors.ValidationError("date must be YYYY-MM-DD")
	}
	dates := make([]string, 0, 7)
	for daysBack := 6; daysBack >= 0; daysBack-- {
		dates = append(dates, end.AddDate(0, 0, -daysBack).Format("2006-01-02"))
	}
	return dates, nil
}
