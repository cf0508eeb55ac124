package utils

import "time"

// Latency samples in microseconds, collected by the metric package.
type Metric struct {
	DatabaseRead       chan float64
	DatabaseWrite      chan float64
	DiscordSendMessage chan float64
	NotificationSend   chan float64
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:       make(chan float64, 64),
		DatabaseWrite:      make(chan float64, 64),
		DiscordSendMessage: make(chan float64, 64),
		NotificationSend:   make(chan float64, 64),
	}
}

// ObserveSince records the time elapsed since start. The sample is dropped
// when the collector is behind or not running.
func ObserveSince(ch chan float64, start time.Time) {
	select {
	case ch <- float64(time.Since(start).Microseconds()):
	default:
	}
}
