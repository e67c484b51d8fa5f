package feedback

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innocell/innocell/core"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	EventID   string    `json:"event_id,omitempty"`
	Rating    int       `json:"rating"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type NewFeedback struct {
	EventID string `json:"event_id" validate:"omitempty,uuid"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Message string `json:"message" validate:"required,min=3,max=2000"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.EventID = core.CleanString(nf.EventID, true /* lower */)
	nf.Message = core.CleanString(nf.Message)
	return validate.Struct(nf)
}

type QueryFilter struct {
	EventID   string `query:"event_id"`
	UserID    string `query:"user_id"`
	MinRating int    `query:"min_rating"`
	MaxRating int    `query:"max_rating"`
	// General restricts results to feedback not bound to an event.
	General bool `query:"general"`
}

func (qf *QueryFilter) Clean() {
	qf.EventID = core.CleanString(qf.EventID, true /* lower */)
	qf.UserID = core.CleanString(qf.UserID, true /* lower */)
}

// Summary aggregates ratings.
type Summary struct {
	Count     int         `json:"count"`
	Average   float64     `json:"average"`
	Histogram map[int]int `json:"histogram"` // {rating: count}
}

// Summarize computes the Summary of ratings.
func Summarize(ratings []int) Summary {
	sum := Summary{Histogram: make(map[int]int, MaxRating)}
	for r := MinRating; r <= MaxRating; r++ {
		sum.Histogram[r] = 0
	}
	total := 0
	for _, r := range ratings {
		if r < MinRating || r > MaxRating {
			continue
		}
		sum.Histogram[r]++
		sum.Count++
		total += r
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum
}
