package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

const (
	// TimestampColumn is the first column of every interval row.
	TimestampColumn = "timestamp"
	// TimestampLayout formats TimestampColumn.
	TimestampLayout = "2006-01-02 15:04:05"
	// Separator joins nested keys.
	Separator = "."
)

// Flatten turns a nested JSON-like value into a single-level map whose
// keys are the nested keys joined by Separator.
func Flatten(prefix string, v any, into map[string]string) {
	switch v := v.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + Separator + k
			}
			Flatten(key, child, into)
		}
	case []any:
		for i, child := range v {
			Flatten(fmt.Sprintf("%s%s%d", prefix, Separator, i), child, into)
		}
	case nil:
		into[prefix] = ""
	default:
		into[prefix] = fmt.Sprint(v)
	}
}

func flattenBucket(b *Bucket) (map[string]string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var nested map[string]any
	if err := dec.Decode(&nested); err != nil {
		return nil, err
	}
	row := make(map[string]string)
	Flatten("", nested, row)
	return row, nil
}

// Rows returns one flat row per bucket in time order, plus the header
// covering every key of every row.
func (iv *Intervals) Rows() ([]string, []map[string]string, error) {
	var rows []map[string]string
	for _, ts := range iv.Timestamps() {
		row, err := flattenBucket(iv.buckets[ts])
		if err != nil {
			return nil, nil, err
		}
		row[TimestampColumn] = time.Unix(ts, 0).Format(TimestampLayout)
		rows = append(rows, row)
	}
	return Header(rows), rows, nil
}

// Header returns the union of the keys of rows: TimestampColumn first, then
// every key containing "sum", then the other keys. Keys are sorted within
// each group.
func Header(rows []map[string]string) []string {
	seen := map[string]bool{TimestampColumn: true}
	var sums, others []string
	for _, row := range rows {
		for k := range row {
			if seen[k] {
				continue
			}
			seen[k] = true
			if strings.Contains(k, "sum") {
				sums = append(sums, k)
			} else {
				others = append(others, k)
			}
		}
	}
	slices.Sort(sums)
	slices.Sort(others)
	return append(append([]string{TimestampColumn}, sums...), others...)
}
