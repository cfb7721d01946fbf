package main

import (
	"flag"
	"os"

	"github.com/m-lab/go/cloud/bqx"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/iperf3-wrapper/pkg/results"

	"cloud.google.com/go/bigquery"
)

var archiveSchema string

func init() {
	flag.StringVar(&archiveSchema, "archive", "/var/spool/datatypes/iperf3-wrapper.json", "filename to write the archive schema")
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "failed to read args from env")

	// Generate and save the archive schema for autoloading.
	sch, err := bigquery.InferSchema(results.Archive{})
	rtx.Must(err, "failed to generate archive schema")
	sch = bqx.RemoveRequired(sch)
	b, err := sch.ToJSONFields()
	rtx.Must(err, "failed to marshal archive schema")
	err = os.WriteFile(archiveSchema, b, 0o644)
	rtx.Must(err, "failed to write archive schema")
}
