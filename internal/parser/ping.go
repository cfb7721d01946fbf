package parser

import (
	"regexp"
	"strconv"

	pingmodel "github.com/m-lab/iperf3-wrapper/pkg/ping/model"
)

var (
	packetSummaryRe = regexp.MustCompile(
		`(\d+) packets transmitted, (\d+) received, (?:\+\d+ (?:duplicates|errors), )*([\d.]+)% packet loss, time (\d+)ms`)
	rttSummaryRe = regexp.MustCompile(
		`rtt min/avg/max/mdev = ([\d.]+)/([\d.]+)/([\d.]+)/([\d.]+) ms`)
	// Only IPv4 replies are recognized.
	packetRe = regexp.MustCompile(
		`\[(\d+\.\d+)\]\s\d+\sbytes\sfrom\s([\d.]+):\sicmp_seq=(\d+)\sttl=(\d+)\stime=([\d.]+)\sms`)
)

// ParsePing parses the output of `ping -D`. Both summary lines must be
// present.
func ParsePing(raw string) (*pingmodel.Result, error) {
	m := packetSummaryRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, ErrNoPacketSummary
	}
	res := &pingmodel.Result{}
	res.Stats.PacketsTransmitted = m[1]
	res.Stats.PacketsReceived = m[2]
	res.Stats.PacketLoss = m[3]
	res.Stats.Time = m[4]

	m = rttSummaryRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, ErrNoRTTSummary
	}
	res.Stats.RTTMin = m[1]
	res.Stats.RTTAvg = m[2]
	res.Stats.RTTMax = m[3]
	res.Stats.RTTMdev = m[4]

	for _, p := range packetRe.FindAllStringSubmatch(raw, -1) {
		// The regexp guarantees these conversions succeed.
		unix, _ := strconv.ParseFloat(p[1], 64)
		seq, _ := strconv.Atoi(p[3])
		ttl, _ := strconv.Atoi(p[4])
		rtt, _ := strconv.ParseFloat(p[5], 64)
		res.Packets = append(res.Packets, pingmodel.Packet{
			UnixTime:   unix,
			TargetHost: p[2],
			ICMPSeq:    seq,
			ICMPTTL:    ttl,
			ICMPTime:   rtt,
		})
		res.Target = p[2]
	}
	return res, nil
}
