package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    Summary
	}{
		{
			name:    "empty",
			ratings: nil,
			want:    Summary{Histogram: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}},
		},
		{
			name:    "mixed",
			ratings: []int{5, 4, 4, 1},
			want:    Summary{Count: 4, Average: 3.5, Histogram: map[int]int{1: 1, 2: 0, 3: 0, 4: 2, 5: 1}},
		},
		{
			name:    "out of range ratings are ignored",
			ratings: []int{0, 3, 6, -2},
			want:    Summary{Count: 1, Average: 3, Histogram: map[int]int{1: 0, 2: 0, 3: 1, 4: 0, 5: 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.ratings))
		})
	}
}
