package access

import "HotelGate/internal/entity"

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type ListQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
}

type EventsResponse struct {
	Events []entity.AccessEvent `json:"events"`
	Source string               `json:"source"`
}
