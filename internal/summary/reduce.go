package summary

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/influxdata/tdigest"
	"github.com/m-lab/iperf3-wrapper/internal/parser"
	iperf3model "github.com/m-lab/iperf3-wrapper/pkg/iperf3/model"
	"github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
	pingmodel "github.com/m-lab/iperf3-wrapper/pkg/ping/model"
)

// TimestampLayout formats the "timestamp" metric.
const TimestampLayout = "20060102-150405"

// digestCompression is the t-digest compression used for ICMP percentiles.
const digestCompression = 50

var (
	// ErrTooFewSamples is returned when a distribution has fewer than two
	// samples.
	ErrTooFewSamples = errors.New("at least two samples are needed")
	// ErrMissingMetric is returned when a derived value needs a metric that
	// is not in the summary.
	ErrMissingMetric = errors.New("missing metric")
)

var percentiles = []float64{50, 90, 99}

// Meta is the run metadata included in a Summary.
type Meta struct {
	ID          string
	Start       time.Time
	Description string
}

// Reduce builds the Summary of one run. Outputs with an error are skipped.
// Problems that only affect some metrics are returned joined; the returned
// Summary is never nil.
func Reduce(meta Meta, outputs []parser.Output) (*Summary, error) {
	s := newSummary()
	s.set("timestamp", meta.Start.Format(TimestampLayout))
	s.set("id", meta.ID)

	var errs []error
	var upload *iperf3model.Result
	for _, out := range outputs {
		if out.Err != nil || out.Throughput == nil {
			continue
		}
		r := out.Throughput
		s.set(string(r.Direction())+"_bits_per_second",
			strconv.FormatInt(int64(r.ReceivedBitsPerSecond()), 10))
		if r.Direction() == spec.DirectionUpstream && !r.IsUDP() {
			upload = r
		}
	}
	if upload != nil {
		if err := s.addStreamRTT(upload); err != nil {
			log.Error("cannot summarize stream RTT", "error", err)
			errs = append(errs, err)
		}
	}
	for _, out := range outputs {
		if out.Err != nil || out.Latency == nil {
			continue
		}
		s.addLatency(out.Latency)
	}
	for _, out := range outputs {
		if out.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", out.Command.String(), out.Err))
		}
	}
	s.set("description", meta.Description)
	return s, errors.Join(errs...)
}

// StreamRTTs returns the RTT of every stream in every interval of r in
// milliseconds. Streams without an RTT (receiver side) are skipped.
func StreamRTTs(r *iperf3model.Result) []float64 {
	var rtts []float64
	for _, interval := range r.Intervals {
		for _, stream := range interval.Streams {
			if stream.RTT > 0 {
				rtts = append(rtts, float64(stream.RTT)/1000)
			}
		}
	}
	return rtts
}

func (s *Summary) addStreamRTT(r *iperf3model.Result) error {
	rtts := StreamRTTs(r)
	mdev, err := StdDev(rtts)
	if err != nil {
		return fmt.Errorf("stream RTT (%d samples): %w", len(rtts), err)
	}
	lo, hi := MinMax(rtts)
	s.set("tcp_rtt_avg", FormatFloat(Round(Mean(rtts), 3)))
	s.set("tcp_rtt_max", FormatFloat(Round(hi, 3)))
	s.set("tcp_rtt_min", FormatFloat(Round(lo, 3)))
	s.set("tcp_rtt_mdev", FormatFloat(Round(mdev, 3)))
	return nil
}

func (s *Summary) addLatency(r *pingmodel.Result) {
	st := r.Stats
	for _, nv := range [][2]string{
		{"pckts_tx", st.PacketsTransmitted},
		{"pckts_rx", st.PacketsReceived},
		{"pckts_loss_perc", st.PacketLoss},
		{"time", st.Time},
		{"rtt_min", st.RTTMin},
		{"rtt_avg", st.RTTAvg},
		{"rtt_max", st.RTTMax},
		{"rtt_mdev", st.RTTMdev},
	} {
		s.set("icmp_"+nv[0], nv[1])
	}
	rtts := r.RTTs()
	if len(rtts) == 0 {
		return
	}
	td := tdigest.NewWithCompression(digestCompression)
	for _, rtt := range rtts {
		td.Add(rtt, 1)
	}
	for _, p := range percentiles {
		s.set(fmt.Sprintf("icmp_rtt_p%d", int(p)), FormatFloat(Round(td.Quantile(p/100), 3)))
	}
}
