// Package model contains the parsed representation of ping output.
package model

import "strconv"

// Result is the parsed output of a `ping -D` run.
type Result struct {
	// Target is the address being pinged, as reported in the packet lines.
	Target string
	// Stats are the summary statistics printed by ping at exit.
	Stats Stats
	// Packets are the per-reply samples, in output order.
	Packets []Packet
}

// Stats holds the summary lines verbatim, as printed by ping. Values are
// kept as text so they can be reported without any reformatting.
type Stats struct {
	PacketsTransmitted string `json:"pckts_tx"`
	PacketsReceived    string `json:"pckts_rx"`
	PacketLoss         string `json:"pckts_loss_perc"`
	Time               string `json:"time"`
	RTTMin             string `json:"rtt_min"`
	RTTAvg             string `json:"rtt_avg"`
	RTTMax             string `json:"rtt_max"`
	RTTMdev            string `json:"rtt_mdev"`
}

// Packet is a single echo reply.
type Packet struct {
	// UnixTime is the timestamp printed by ping -D.
	UnixTime   float64 `json:"unix_time"`
	TargetHost string  `json:"target_host"`
	ICMPSeq    int     `json:"icmp_seq"`
	ICMPTTL    int     `json:"icmp_ttl"`
	// ICMPTime is the round-trip time in milliseconds.
	ICMPTime float64 `json:"icmp_time"`
}

// MinAvg returns RTTMin and RTTAvg as numbers.
func (s Stats) MinAvg() (float64, float64, error) {
	min, err := strconv.ParseFloat(s.RTTMin, 64)
	if err != nil {
		return 0, 0, err
	}
	avg, err := strconv.ParseFloat(s.RTTAvg, 64)
	if err != nil {
		return 0, 0, err
	}
	return min, avg, nil
}

// RTTs returns the round-trip times of all received packets.
func (r *Result) RTTs() []float64 {
	rtts := make([]float64, 0, len(r.Packets))
	for _, p := range r.Packets {
		rtts = append(rtts, p.ICMPTime)
	}
	return rtts
}
