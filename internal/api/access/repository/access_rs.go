package accessRepository

import (
	"context"
	"database/sql"
	"time"

	"HotelGate/internal/entity"
	contextPkg "HotelGate/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type AccessEventDB struct {
	ID         string         `db:"id"`
	AttemptID  string         `db:"attempt_id"`
	BookingID  int64          `db:"booking_id"`
	SubjectID  sql.NullString `db:"subject_id"`
	Mode       string         `db:"mode"`
	Outcome    string         `db:"outcome"`
	Reason     sql.NullString `db:"reason"`
	Message    sql.NullString `db:"message"`
	RoomCode   sql.NullString `db:"room_code"`
	OperatorID sql.NullString `db:"operator_id"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r *eventRepository) Insert(ctx context.Context, event entity.AccessEvent) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"id":          event.ID,
		"attempt_id":  event.AttemptID,
		"booking_id":  event.BookingID,
		"subject_id":  nullString(event.SubjectID),
		"mode":        string(event.Mode),
		"outcome":     string(event.Outcome),
		"reason":      nullString(string(event.Reason)),
		"message":     nullString(event.Message),
		"room_code":   nullString(event.RoomCode),
		"operator_id": nullString(event.OperatorID),
		"created_at":  event.CreatedAt,
	}

	query, args, err := sqlx.Named(queryInsertEvent, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for Insert")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"attempt_id": event.AttemptID,
			"error":      err.Error(),
		}).Error("Database error when inserting access event")
		return err
	}

	return nil
}

func (r *eventRepository) ListByBooking(ctx context.Context, bookingID int64, limit int) ([]entity.AccessEvent, error) {
	return r.list(ctx, queryListByBooking, map[string]interface{}{
		"booking_id": bookingID,
		"limit":      limit,
	})
}

func (r *eventRepository) ListRecent(ctx context.Context, limit int) ([]entity.AccessEvent, error) {
	return r.list(ctx, queryListRecent, map[string]interface{}{
		"limit": limit,
	})
}

func (r *eventRepository) list(ctx context.Context, namedQuery string, argsKV map[string]interface{}) ([]entity.AccessEvent, error) {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Access event list named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []AccessEventDB
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Access event list execution err")
		return nil, err
	}

	events := make([]entity.AccessEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, r.makeAccessEvent(row))
	}

	return events, nil
}

func (r *eventRepository) makeAccessEvent(row AccessEventDB) entity.AccessEvent {
	return entity.AccessEvent{
		ID:         row.ID,
		AttemptID:  row.AttemptID,
		BookingID:  row.BookingID,
		SubjectID:  row.SubjectID.String,
		Mode:       entity.FlowMode(row.Mode),
		Outcome:    entity.OutcomeKind(row.Outcome),
		Reason:     entity.DenialReason(row.Reason.String),
		Message:    row.Message.String,
		RoomCode:   row.RoomCode.String,
		OperatorID: row.OperatorID.String,
		CreatedAt:  row.CreatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
