package accessService

import (
	"context"
	"fmt"
	"time"

	"HotelGate/internal/api/access"
	"HotelGate/internal/entity"
	contextPkg "HotelGate/pkg/context"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const (
	RecentFeedKey  = "gate:access:recent"
	recentFeedKeep = access.MaxLimit
	recentFeedTTL  = 7 * 24 * time.Hour
)

const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

func (s *accessService) Record(ctx context.Context, event entity.AccessEvent) error {
	logger := s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"attempt_id": event.AttemptID,
		"booking_id": event.BookingID,
		"outcome":    event.Outcome,
	})

	if s.repository != nil {
		client, err := s.repository.NewClient(false)
		if err != nil {
			logger.WithField("error", err.Error()).Error("Failed to open journal client")
			return fmt.Errorf("%w: %v", access.ErrJournalWrite, err)
		}

		if err := client.Events.Insert(ctx, event); err != nil {
			return fmt.Errorf("%w: %v", access.ErrJournalWrite, err)
		}
	}

	if s.feed != nil {
		payload, err := jsoniter.Marshal(event)
		if err != nil {
			logger.WithField("error", err.Error()).Warn("Failed to encode access event for feed")
			return nil
		}
		if err := s.feed.PushRecent(ctx, RecentFeedKey, payload, recentFeedKeep, recentFeedTTL); err != nil {
			logger.WithField("error", err.Error()).Warn("Failed to push access event to feed")
		}
	}

	logger.Debug("Access event journaled")
	return nil
}

// Recent serves the feed when it has entries and falls back to the journal.
func (s *accessService) Recent(ctx context.Context, limit int) ([]entity.AccessEvent, string, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, "", err
	}

	if s.feed != nil {
		events, err := s.recentFromFeed(ctx, limit)
		if err == nil && len(events) > 0 {
			return events, SourceCache, nil
		}
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"error":      err.Error(),
			}).Warn("Recent feed unavailable, reading journal")
		}
	}

	if s.repository == nil {
		return []entity.AccessEvent{}, SourceDatabase, nil
	}

	client, err := s.repository.NewClient(false)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", access.ErrJournalRead, err)
	}

	events, err := client.Events.ListRecent(ctx, limit)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", access.ErrJournalRead, err)
	}

	return events, SourceDatabase, nil
}

func (s *accessService) ByBooking(ctx context.Context, bookingID int64, limit int) ([]entity.AccessEvent, error) {
	if bookingID <= 0 {
		return nil, access.ErrInvalidBookingID
	}

	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	if s.repository == nil {
		return []entity.AccessEvent{}, nil
	}

	client, err := s.repository.NewClient(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", access.ErrJournalRead, err)
	}

	events, err := client.Events.ListByBooking(ctx, bookingID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", access.ErrJournalRead, err)
	}

	return events, nil
}

func (s *accessService) recentFromFeed(ctx context.Context, limit int) ([]entity.AccessEvent, error) {
	raw, err := s.feed.Recent(ctx, RecentFeedKey, int64(limit))
	if err != nil {
		return nil, err
	}

	events := make([]entity.AccessEvent, 0, len(raw))
	for _, item := range raw {
		var event entity.AccessEvent
		if err := jsoniter.Unmarshal(item, &event); err != nil {
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

func normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return access.DefaultLimit, nil
	}
	if limit < 0 || limit > access.MaxLimit {
		return 0, access.ErrInvalidLimit
	}
	return limit, nil
}
