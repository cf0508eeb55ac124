package metric

import (
	"log/slog"
	"time"

	"rsvpd/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyGauge holds the last latency sample of a channel and drops back to
// 0 when no sample arrived for clearTickerInterval.
func latencyGauge(as *utils.AppState, name string, help string, samples chan float64, clearTickerInterval time.Duration) {
	gauge := promauto.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
	slog.Debug("metric registered", "name", name)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		clearTicker := time.NewTicker(clearTickerInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				switch prometheus.Unregister(gauge) {
				case true:
					slog.Debug("metric unregistered", "name", name)
				case false:
					slog.Warn("metric not registered", "name", name)
				}
				return
			case latency := <-samples:
				gauge.Set(latency)
				clearTicker.Reset(clearTickerInterval)
			case <-clearTicker.C:
				gauge.Set(0)
			}
		}
	}()
}

// probeGauge runs probe every tickerInterval and keeps its latency.
func probeGauge(as *utils.AppState, name string, help string, probe func() (time.Duration, error), tickerInterval time.Duration) {
	gauge := promauto.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
	slog.Debug("metric registered", "name", name)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				prometheus.Unregister(gauge)
				return
			case <-ticker.C:
				latency, err := probe()
				if err != nil {
					slog.Error("metric probe failed", "name", name, "error", err)
					continue
				}
				gauge.Set(float64(latency.Microseconds()))
			}
		}
	}()
}

func Init(as *utils.AppState) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := as.Config.GetMetricCollectionInterval() * 2

	probeGauge(as,
		"rsvpd_database_empty_read_microsec",
		"The latency of an empty database read in microseconds",
		func() (time.Duration, error) { return database(as) },
		tickerInterval)
	latencyGauge(as,
		"rsvpd_database_read_microsec",
		"The latency of a database read in microseconds",
		as.MetricChans.DatabaseRead, clearTickerInterval)
	latencyGauge(as,
		"rsvpd_database_write_microsec",
		"The latency of a database write in microseconds",
		as.MetricChans.DatabaseWrite, clearTickerInterval)
	latencyGauge(as,
		"rsvpd_discord_send_message_microsec",
		"The latency of a discord interaction response in microseconds",
		as.MetricChans.DiscordSendMessage, clearTickerInterval)
	latencyGauge(as,
		"rsvpd_notification_send_microsec",
		"The latency of a notification delivery in microseconds",
		as.MetricChans.NotificationSend, clearTickerInterval)
	if as.DgSession != nil {
		probeGauge(as,
			"rsvpd_discord_heartbeat_latency_microsec",
			"The latency of a discord heartbeat in microseconds",
			func() (time.Duration, error) { return as.DgSession.HeartbeatLatency(), nil },
			tickerInterval)
	}
}
