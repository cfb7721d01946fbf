package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/persistence"
	"github.com/m-lab/iperf3-wrapper/internal/summary"
	"github.com/m-lab/iperf3-wrapper/pkg/results"
	"github.com/m-lab/iperf3-wrapper/pkg/version"
)

// Datatype is the archive datatype name.
const Datatype = "iperf3-wrapper"

// Export writes the summaries and interval tables of runs in the enabled
// formats. File names share the tag of mode and the formatted start time.
func (o *Orchestrator) Export(mode Mode, start time.Time, runs []*Run) error {
	defer o.transition(Idle)
	if !o.cfg.CSV && !o.cfg.JSON {
		o.transition(Exported)
		return nil
	}
	names := persistence.Names{
		Dir:         o.cfg.ResultPath(),
		TestName:    o.cfg.TestName,
		Type:        mode.Tag(),
		Description: o.cfg.Description,
		Timestamp:   start.Format(summary.TimestampLayout),
	}
	summaries := make([]*summary.Summary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, r.Summary)
	}

	var errs []error
	if o.cfg.CSV {
		rows := make([]map[string]string, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, s.Map())
		}
		errs = append(errs, persistence.WriteCSV(names.Summary("csv"), summary.Columns(summaries), rows))
		for i, r := range runs {
			header, rows, err := r.Intervals.Rows()
			if err != nil {
				errs = append(errs, err)
				continue
			}
			errs = append(errs, persistence.WriteCSV(names.Intervals(i, "csv"), header, rows))
		}
	}
	if o.cfg.JSON {
		errs = append(errs, persistence.WriteJSON(names.Summary("json"), summaries))
		for i, r := range runs {
			errs = append(errs, persistence.WriteJSON(names.Intervals(i, "json"), r.Intervals))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		return fmt.Errorf("cannot export results: %w", err)
	}
	log.Info("results exported", "dir", names.Dir)
	o.transition(Exported)
	return nil
}

// saveRaw appends the output of every completed process to its own file.
func (o *Orchestrator) saveRaw(r *Run) {
	if !o.cfg.SaveOutputs {
		return
	}
	ts := r.Start.Format(summary.TimestampLayout)
	for _, res := range r.Results {
		if !res.Completed {
			continue
		}
		ext := "log"
		if res.Command.Kind == command.KindThroughput {
			ext = "json"
		}
		path := persistence.RawName(o.cfg.ResultPath(), res.Command.String(), ts, ext)
		if err := persistence.AppendRaw(path, res.Stdout); err != nil {
			log.Error("cannot save raw output", "path", path, "error", err)
		}
	}
}

// archive writes the archival record of r when an archive directory is set.
func (o *Orchestrator) archive(r *Run) {
	if o.cfg.ArchiveDir == "" {
		return
	}
	a := results.Archive{
		GitShortCommit: prometheusx.GitShortCommit,
		Version:        version.Version,
		ID:             r.ID,
		Mode:           r.Subtest,
		Iteration:      r.Iteration,
		Description:    o.cfg.Description,
		StartTime:      r.Start,
		EndTime:        r.End,
		Summary:        r.Summary.Metrics(),
	}
	for i, res := range r.Results {
		rec := results.CommandRecord{
			Kind:      res.Command.Kind.String(),
			Command:   res.Command.String(),
			PID:       res.PID,
			Completed: res.Completed,
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		} else if i < len(r.Outputs) && r.Outputs[i].Err != nil {
			rec.Error = r.Outputs[i].Err.Error()
		}
		a.Commands = append(a.Commands, rec)
	}
	for _, out := range r.Outputs {
		switch {
		case out.Throughput != nil:
			a.Throughput = append(a.Throughput, *out.Throughput)
		case out.Latency != nil:
			a.Latency = append(a.Latency, *out.Latency)
		}
	}
	df, err := persistence.WriteDataFile(o.cfg.ArchiveDir, Datatype, r.Subtest, r.ID, a)
	if err != nil {
		log.Error("cannot write archive", "id", r.ID, "error", err)
		return
	}
	log.Debug("archive written", "path", df.Path, "size", df.Size)
}

