package persistence

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Names builds result file names for one invocation. All files of an
// invocation share the same prefix and timestamp suffix.
type Names struct {
	// Dir is the destination directory.
	Dir string
	// TestName is prepended to every file name when set.
	TestName string
	// Type is the scenario tag: ST, BBT or ALL.
	Type string
	// Description is inserted before the timestamp when set.
	Description string
	// Timestamp is formatted as YYYYmmdd-HHMMSS.
	Timestamp string
}

func (n Names) base(kind string) string {
	var b strings.Builder
	if n.TestName != "" {
		b.WriteString(n.TestName + "-")
	}
	b.WriteString(n.Type + "_" + kind + "_")
	if n.Description != "" {
		b.WriteString(n.Description + "_")
	}
	b.WriteString(n.Timestamp)
	return filepath.Join(n.Dir, b.String())
}

// Summary returns the path of the summary file with the given extension.
func (n Names) Summary(ext string) string {
	return n.base("summary") + "." + ext
}

// Intervals returns the path of the i-th intervals file.
func (n Names) Intervals(i int, ext string) string {
	return fmt.Sprintf("%s_%d.%s", n.base("intervals"), i, ext)
}

// RawName returns the file name for the raw output of a command: dashes
// become underscores and spaces are removed.
func RawName(dir, cmdline, timestamp, ext string) string {
	name := strings.ReplaceAll(strings.ReplaceAll(cmdline, "-", "_"), " ", "")
	return filepath.Join(dir, name+"_"+timestamp+"."+ext)
}

// WriteCSV writes rows under header. Missing cells are left empty.
func WriteCSV(path string, header []string, rows []map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(fp)
	if err := w.Write(header); err != nil {
		fp.Close()
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			fp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fp.Close()
		return err
	}
	log.Info("CSV written", "path", path)
	return fp.Close()
}

// WriteJSON writes the indented JSON representation of v.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	log.Info("JSON written", "path", path)
	return nil
}

// AppendRaw appends raw tool output to path.
func AppendRaw(path, output string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	fp, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := fp.WriteString(output); err != nil {
		fp.Close()
		return err
	}
	log.Debug("raw output saved", "path", path)
	return fp.Close()
}
