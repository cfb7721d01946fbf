package summary

import (
	"fmt"
	"strconv"
)

// Grade rates the latency increase observed under load.
type Grade struct {
	Letter      string
	Description string
}

func (g Grade) String() string {
	return g.Letter + " - " + g.Description
}

var grades = []struct {
	below float64
	grade Grade
}{
	{5, Grade{"A+", "Less than 5 ms latency increase"}},
	{30, Grade{"A", "Less than 30 ms latency increase"}},
	{60, Grade{"B", "Less than 60 ms latency increase"}},
	{200, Grade{"C", "Less than 200 ms latency increase"}},
	{400, Grade{"D", "Less than 400 ms latency increase"}},
}

var gradeF = Grade{"F", "400 ms or greater latency increase"}

// GradeFor returns the bufferbloat grade for a latency increase in
// milliseconds.
func GradeFor(increase float64) Grade {
	for _, g := range grades {
		if increase < g.below {
			return g.grade
		}
	}
	return gradeF
}

// LatencyIncrease returns icmp_rtt_max - icmp_rtt_min rounded to two
// decimals.
func (s *Summary) LatencyIncrease() (float64, error) {
	lo, err := s.float("icmp_rtt_min")
	if err != nil {
		return 0, err
	}
	hi, err := s.float("icmp_rtt_max")
	if err != nil {
		return 0, err
	}
	return Round(hi-lo, 2), nil
}

func (s *Summary) float(name string) (float64, error) {
	v, ok := s.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingMetric, name)
	}
	return strconv.ParseFloat(v, 64)
}

// Grade returns the bufferbloat grade of the summary.
func (s *Summary) Grade() (Grade, float64, error) {
	inc, err := s.LatencyIncrease()
	if err != nil {
		return Grade{}, 0, err
	}
	return GradeFor(inc), inc, nil
}
