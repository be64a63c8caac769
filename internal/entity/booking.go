package entity

import "time"

// BookingReference is what a scanned token resolves to. SubjectID is empty
// when the token did not carry one.
type BookingReference struct {
	BookingID int64  `json:"booking_id"`
	SubjectID string `json:"subject_id,omitempty"`
}

func (r BookingReference) HasSubject() bool {
	return r.SubjectID != ""
}

// WithSubject returns a copy of r with the subject filled in if r has none.
func (r BookingReference) WithSubject(subjectID string) BookingReference {
	if r.SubjectID == "" {
		r.SubjectID = subjectID
	}
	return r
}

type BookingRecord struct {
	BookingID    int64      `json:"booking_id"`
	Code         string     `json:"code,omitempty"`
	SubjectID    string     `json:"subject_id,omitempty"`
	SubjectName  string     `json:"subject_name,omitempty"`
	SubjectEmail string     `json:"subject_email,omitempty"`
	SubjectPhone string     `json:"subject_phone,omitempty"`
	RoomID       string     `json:"room_id,omitempty"`
	RoomCode     string     `json:"room_code,omitempty"`
	CheckinDate  *time.Time `json:"checkin_date,omitempty"`
	CheckoutDate *time.Time `json:"checkout_date,omitempty"`
	NumGuests    int        `json:"num_guests,omitempty"`
	Status       string     `json:"status,omitempty"`
}

func (b *BookingRecord) MissingContact() bool {
	return b.SubjectName == "" || b.SubjectEmail == "" || b.SubjectPhone == ""
}
