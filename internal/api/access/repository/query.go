package accessRepository

const (
	queryCreateTable = `
		CREATE TABLE IF NOT EXISTS access_events (
			id          VARCHAR(26) PRIMARY KEY,
			attempt_id  VARCHAR(26) NOT NULL,
			booking_id  BIGINT NOT NULL DEFAULT 0,
			subject_id  VARCHAR(64),
			mode        VARCHAR(16) NOT NULL,
			outcome     VARCHAR(32) NOT NULL,
			reason      VARCHAR(32),
			message     TEXT,
			room_code   VARCHAR(32),
			operator_id VARCHAR(64),
			created_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_access_events_booking ON access_events (booking_id, created_at DESC);
	`

	queryInsertEvent = `
		INSERT INTO access_events (
			id,
			attempt_id,
			booking_id,
			subject_id,
			mode,
			outcome,
			reason,
			message,
			room_code,
			operator_id,
			created_at
		) VALUES (
			:id,
			:attempt_id,
			:booking_id,
			:subject_id,
			:mode,
			:outcome,
			:reason,
			:message,
			:room_code,
			:operator_id,
			:created_at
		)
	`

	queryListByBooking = `
		SELECT
			id,
			attempt_id,
			booking_id,
			subject_id,
			mode,
			outcome,
			reason,
			message,
			room_code,
			operator_id,
			created_at
		FROM access_events
		WHERE booking_id = :booking_id
		ORDER BY created_at DESC
		LIMIT :limit
	`

	queryListRecent = `
		SELECT
			id,
			attempt_id,
			booking_id,
			subject_id,
			mode,
			outcome,
			reason,
			message,
			room_code,
			operator_id,
			created_at
		FROM access_events
		ORDER BY created_at DESC
		LIMIT :limit
	`
)
