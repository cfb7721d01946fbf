// Package persistence writes run results to disk.
package persistence

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path"
	"time"
)

// DataFile is an archival datafile written to disk.
type DataFile struct {
	// Prefix is the root data directory.
	Prefix string
	// Datatype is the first directory level below Prefix.
	Datatype string
	// Subtest is the scenario mode that produced the data.
	Subtest string
	// UUID is the run ID.
	UUID string
	// Path is the full path of the written file.
	Path string
	// Size is the number of uncompressed bytes written.
	Size int
}

// WriteDataFile writes the gzipped JSON representation of result to
// datadir/datatype/YYYY/MM/DD/datatype-subtest-<timestamp>.<uuid>.json.gz.
// Existing files are never overwritten. Size is the uncompressed length.
func WriteDataFile(datadir, datatype, subtest, uuid string, result any) (*DataFile, error) {
	timestamp := time.Now()
	dir := path.Join(datadir, datatype, timestamp.Format("2006/01/02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	filepath := path.Join(dir, datatype+"-"+subtest+"-"+
		timestamp.Format("20060102T150405.000000000Z")+"."+uuid+".json.gz")
	fp, err := os.OpenFile(filepath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	writer, err := gzip.NewWriterLevel(fp, gzip.BestSpeed)
	if err != nil {
		fp.Close()
		return nil, err
	}
	n, err := writer.Write(data)
	if err != nil {
		writer.Close()
		fp.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		fp.Close()
		return nil, err
	}
	if err := fp.Close(); err != nil {
		return nil, err
	}
	return &DataFile{
		Prefix:   datadir,
		Datatype: datatype,
		Subtest:  subtest,
		UUID:     uuid,
		Path:     filepath,
		Size:     n,
	}, nil
}
