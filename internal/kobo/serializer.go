// Package kobo renders catalog data in the Kobo store API's wire format.
package kobo

import (
	"strconv"
	"time"

	"github.com/kobink/kobink-server/internal/domain"
	"github.com/kobink/kobink-server/internal/id"
	"github.com/kobink/kobink-server/internal/normalize"
)

const (
	timeLayout = "2006-01-02T15:04:05Z"

	zeroGenre      = "00000000-0000-0000-0000-000000000000"
	unknownName    = "Unknown"
	defaultPrice   = "USD"
	originImported = "Imported"
)

// ChangeTypeEntitlement tags every library sync event.
const ChangeTypeEntitlement = "Entitlement"

// Timestamp formats t the way the device parses dates.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Unix(0, 0)
	}
	return t.UTC().Format(timeLayout)
}

// SyncEvents renders a delta as sync events: additions, then changes, then removals,
// each in id order. Timestamps come from the files and the snapshot, never the
// wall clock, so the same delta always renders the same events.
func SyncEvents(d domain.SyncDelta, urls URLs) []SyncEvent {
	events := make([]SyncEvent, 0, d.Len())

	for _, e := range d.Added {
		meta := Metadata(e, urls)
		state := NewReadingState(e)
		events = append(events, SyncEvent{ChangeType: ChangeTypeEntitlement, NewEntitlement: &Entitlement{
			BookEntitlement: entitlement(e.ID, e.ModTime, false),
			BookMetadata:    &meta,
			ReadingState:    &state,
		}})
	}

	for _, e := range d.Changed {
		meta := Metadata(e, urls)
		events = append(events, SyncEvent{ChangeType: ChangeTypeEntitlement, ChangedEntitlement: &Entitlement{
			BookEntitlement: entitlement(e.ID, e.ModTime, false),
			BookMetadata:    &meta,
		}})
	}

	for _, removedID := range d.Removed {
		events = append(events, SyncEvent{ChangeType: ChangeTypeEntitlement, ChangedEntitlement: &Entitlement{
			BookEntitlement: entitlement(removedID, d.At, true),
		}})
	}

	return events
}

func entitlement(entryID string, modified time.Time, removed bool) BookEntitlement {
	ts := Timestamp(modified)
	status := "Active"
	if removed {
		status = "Removed"
	}
	return BookEntitlement{
		Accessibility:   "Full",
		ActivePeriod:    ActivePeriod{From: ts},
		Created:         ts,
		CrossRevisionID: entryID,
		ID:              entryID,
		IsRemoved:       removed,
		LastModified:    ts,
		OriginCategory:  originImported,
		RevisionID:      entryID,
		Status:          status,
	}
}

// Metadata renders the metadata record of an entry.
func Metadata(e *domain.BookEntry, urls URLs) BookMetadata {
	authors := e.Authors
	if len(authors) == 0 {
		authors = []string{unknownName}
	}
	roles := make([]ContributorRole, 0, len(authors))
	for _, a := range authors {
		roles = append(roles, ContributorRole{Name: a, Role: "Author"})
	}

	publisher := e.Publisher
	if publisher == "" {
		publisher = unknownName
	}

	published := e.PublishedAt
	if published.IsZero() {
		published = e.ModTime
	}

	m := BookMetadata{
		Categories:              []string{},
		ContributorRoles:        roles,
		Contributors:            append([]string(nil), authors...),
		CoverImageID:            e.ID,
		CrossRevisionID:         e.ID,
		CurrentDisplayPrice:     DisplayPrice{CurrencyCode: defaultPrice},
		CurrentLoveDisplayPrice: LovePrice{},
		Description:             e.Description,
		DownloadUrls: []DownloadURL{{
			DRMType:  "NONE",
			Format:   string(e.Format),
			Platform: "Generic",
			Size:     e.Size,
			URL:      urls.Download(e),
		}},
		EntitlementID:          e.ID,
		ExternalIDs:            []string{},
		Genre:                  zeroGenre,
		Language:               normalize.KoboLanguage(e.Language),
		PhoneticPronunciations: map[string]string{},
		PublicationDate:        Timestamp(published),
		Publisher:              Publisher{Name: publisher},
		RevisionID:             e.ID,
		Title:                  e.Title,
		WorkID:                 e.ID,
	}

	if e.Series != "" {
		m.Series = &Series{
			ID:          id.SeriesID(e.Series),
			Name:        e.Series,
			Number:      strconv.FormatFloat(e.SeriesIndex, 'f', -1, 64),
			NumberFloat: e.SeriesIndex,
		}
	}
	return m
}

// NewReadingState is the state sent with a newly added book: unread, no bookmark.
func NewReadingState(e *domain.BookEntry) ReadingState {
	ts := Timestamp(e.ModTime)
	return ReadingState{
		Created:           ts,
		CurrentBookmark:   Bookmark{LastModified: ts},
		EntitlementID:     e.ID,
		LastModified:      ts,
		PriorityTimestamp: ts,
		Statistics:        ReadingStats{LastModified: ts},
		StatusInfo: ReadingStatusRef{
			LastModified: ts,
			Status:       "ReadyToRead",
		},
	}
}

// AuthResponse renders the token payload. The refresh token is the access token:
// tokens never expire, so there is nothing separate to refresh.
func AuthResponse(token, userKey, trackingID string) DeviceAuthResponse {
	return DeviceAuthResponse{
		AccessToken:  token,
		RefreshToken: token,
		TokenType:    "Bearer",
		TrackingID:   trackingID,
		UserKey:      userKey,
	}
}

// StateUpdateAck acknowledges a reading state update without storing it.
func StateUpdateAck(entitlementID string) StateUpdateResponse {
	ok := UpdateResult{Result: "Success"}
	return StateUpdateResponse{
		RequestResult: "Success",
		UpdateResults: []StateUpdateResult{{
			EntitlementID:         entitlementID,
			CurrentBookmarkResult: ok,
			StatisticsResult:      ok,
			StatusInfoResult:      ok,
		}},
	}
}

// Paginate returns events[offset:offset+limit] and whether more remain.
func Paginate(events []SyncEvent, offset, limit int) ([]SyncEvent, bool) {
	if offset < 0 || offset > len(events) {
		offset = len(events)
	}
	if limit <= 0 {
		return events[offset:], false
	}
	end := min(offset+limit, len(events))
	return events[offset:end], end < len(events)
}
