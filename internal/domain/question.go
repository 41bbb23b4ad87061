package domain

import "time"

// Question is a binary-choice item tagged to one dimension.
type Question struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenant_id"`
	Language           string    `json:"language"`
	Ordinal            int       `json:"ordinal"`
	Dimension          Dimension `json:"dimension"`
	Text               string    `json:"text"`
	OptionA            string    `json:"option_a"`
	OptionB            string    `json:"option_b"`
	OptionAMapsToFirst bool      `json:"option_a_maps_to_first"` // true: A suma a E, S, T o J
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
}

// MapsToFirst reports whether picking opt credits the dimension's first pole.
func (q Question) MapsToFirst(opt Option) bool {
	if opt == OptionA {
		return q.OptionAMapsToFirst
	}
	return !q.OptionAMapsToFirst
}

// TieBreakerQuestion has the shape of a Question but is only served while a
// dimension is tied.
type TieBreakerQuestion struct {
	Question
}
