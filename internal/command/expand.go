package command

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// ExpandValue expands a raw flag value into the list of values it denotes.
// The value is split on commas; a token of the form "start-end" with
// integer bounds and start < end becomes start, start+1, ..., end-1 (the end
// is excluded). Any other token, including one that looks like a range but
// does not parse as one, is kept verbatim. An empty value expands to a
// single empty string so that toggle flags still render.
func ExpandValue(raw string) []string {
	if raw == "" {
		return []string{""}
	}
	var values []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if !strings.Contains(tok, "-") {
			values = append(values, tok)
			continue
		}
		r, ok := parseRange(tok)
		if !ok {
			log.Warn("value is not a valid range, using it verbatim", "value", tok)
			values = append(values, tok)
			continue
		}
		values = append(values, r...)
	}
	return values
}

// MaxRangeValues is the largest number of values a single range expands to.
// Larger ranges are kept verbatim.
const MaxRangeValues = 1024

func parseRange(tok string) ([]string, bool) {
	parts := strings.Split(tok, "-")
	if len(parts) != 2 {
		return nil, false
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, false
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || start >= end || end-start > MaxRangeValues {
		return nil, false
	}
	r := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r = append(r, strconv.Itoa(i))
	}
	return r, true
}

// ExpandPorts expands a port specification into a list of port numbers.
// Tokens that are not valid ports are dropped with a warning.
func ExpandPorts(raw string) []int {
	var ports []int
	for _, v := range ExpandValue(raw) {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			log.Warn("ignoring invalid port", "port", v)
			continue
		}
		ports = append(ports, p)
	}
	return ports
}
