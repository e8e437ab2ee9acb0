package types

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearDistribution is ascending by year and has no gaps, missing years carry a zero count.
type YearDistribution []YearCount

func (y YearDistribution) Total() int {
	total := 0
	for _, c := range y {
		total += c.Count
	}
	return total
}
