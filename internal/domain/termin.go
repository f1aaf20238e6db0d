package domain

import "time"

// Termin is one of N ordered slices of a project's contract value.
// Index is 1-based. Exactly one termin per project is active at a time and
// termins settle strictly in order.
type Termin struct {
	ProjectID string
	Index     int
	Value     Money
	DueAt     *time.Time
	Active    bool
}

// ScheduleTermins splits total into count equal parts. The last termin
// absorbs the rounding remainder so the parts always sum to total exactly.
func ScheduleTermins(projectID string, total Money, count int) ([]Termin, error) {
	if count < 1 || total <= 0 {
		return nil, NewInvalidScheduleError(total, count)
	}

	per := int64(total) / int64(count)
	termins := make([]Termin, count)
	var allocated int64
	for i := 0; i < count; i++ {
		value := per
		if i == count-1 {
			value = int64(total) - allocated
		}
		allocated += value
		termins[i] = Termin{
			ProjectID: projectID,
			Index:     i + 1,
			Value:     Money(value),
			Active:    i == 0,
		}
	}
	return termins, nil
}

// ScheduleWeightedTermins splits total proportionally to weights, flooring
// each slice and giving the remainder to the last termin. Used when the
// contract names explicit milestone proportions instead of equal splits.
func ScheduleWeightedTermins(projectID string, total Money, weights []int64) ([]Termin, error) {
	if len(weights) == 0 || total <= 0 {
		return nil, NewInvalidScheduleError(total, len(weights))
	}

	var weightSum int64
	for _, w := range weights {
		if w <= 0 {
			return nil, NewInvalidScheduleError(total, len(weights))
		}
		weightSum += w
	}

	termins := make([]Termin, len(weights))
	var allocated int64
	for i, w := range weights {
		value := int64(total) * w / weightSum
		if i == len(weights)-1 {
			value = int64(total) - allocated
		}
		allocated += value
		termins[i] = Termin{
			ProjectID: projectID,
			Index:     i + 1,
			Value:     Money(value),
			Active:    i == 0,
		}
	}
	return termins, nil
}
