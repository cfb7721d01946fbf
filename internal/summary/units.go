package summary

import (
	"math"
	"strconv"
)

var unitSuffixes = []struct {
	digits  int
	divider float64
	unit    string
}{
	{4, 1, ""},
	{7, 1e3, "k"},
	{10, 1e6, "M"},
	{13, 1e9, "G"},
}

// HumanReadable scales a value by its number of integer digits and appends
// the unit prefix: fewer than 4 digits are unscaled, then k, M, G and T.
// The scaled value is rounded to two decimals, e.g. 1.5e9 gives "1.5 G" and
// 999 gives "999 ".
func HumanReadable(v float64) string {
	digits := len(strconv.FormatInt(int64(math.Abs(v)), 10))
	divider, unit := 1e12, "T"
	for _, s := range unitSuffixes {
		if digits < s.digits {
			divider, unit = s.divider, s.unit
			break
		}
	}
	return FormatFloat(Round(v/divider, 2)) + " " + unit
}
