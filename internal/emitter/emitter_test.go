package emitter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-lab/go/testingx"
	"github.com/m-lab/iperf3-wrapper/internal/bdp"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/parser"
	"github.com/m-lab/iperf3-wrapper/internal/summary"
	"github.com/m-lab/iperf3-wrapper/internal/supervisor"
	"github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
)

func TestHumanReadable_OnSummary(t *testing.T) {
	upload := command.Command{Kind: command.KindThroughput, Program: spec.Program}
	results := supervisor.New(time.Second, true).Run(context.Background(), []command.Command{
		command.Ping("h", 10, 0),
		upload.With(spec.FlagReverse, ""),
		upload,
	})
	s, err := summary.Reduce(summary.Meta{Start: time.Now()}, parser.ParseAll(results))
	testingx.Must(t, err, "cannot reduce fixtures")

	var buf bytes.Buffer
	HumanReadable{Out: &buf}.OnSummary(s)
	out := buf.String()
	for _, want := range []string{"Summary Stats", "5 Gbps", "1 Gbps", "9.9 ms", "8.0 ms", "0%", "p50"} {
		if !strings.Contains(out, want) {
			t.Errorf("OnSummary() output does not contain %q:\n%s", want, out)
		}
	}

	t.Run("missing metrics are shown as N/A", func(t *testing.T) {
		s, _ := summary.Reduce(summary.Meta{}, nil)
		var buf bytes.Buffer
		HumanReadable{Out: &buf}.OnSummary(s)
		if !strings.Contains(buf.String(), summary.NotAvailable) {
			t.Errorf("OnSummary() output does not contain N/A:\n%s", buf.String())
		}
	})
}

func TestHumanReadable_Quiet(t *testing.T) {
	var buf bytes.Buffer
	h := HumanReadable{Out: &buf, Quiet: true}
	h.OnStart("bufferbloat", 0, 1)
	h.OnGrade(summary.GradeFor(1), 1)
	h.OnBDP(bdp.Report{})
	h.OnError(errors.New("boom"))
	if buf.Len() != 0 {
		t.Errorf("quiet emitter printed %q", buf.String())
	}

	h.Quiet = false
	h.OnError(errors.New("boom"))
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("OnError() did not print the error")
	}
}

func TestHumanReadable_OnBDP(t *testing.T) {
	var buf bytes.Buffer
	HumanReadable{Out: &buf}.OnBDP(bdp.Report{Host: "h", RTTMin: 5, RTTAvg: 8, WMem: 4194304, RMem: 6291456})
	out := buf.String()
	for _, want := range []string{"host: h", "4.19 Mbytes", "6.71 Gbps", "10 Gbps"} {
		if !strings.Contains(out, want) {
			t.Errorf("OnBDP() output does not contain %q:\n%s", want, out)
		}
	}
}
