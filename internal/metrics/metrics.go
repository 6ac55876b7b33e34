// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Censor decision metrics
	censorDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "censord_decisions_total",
		Help: "Censor decisions by verdict",
	}, []string{"verdict"}) // verdict=trusted|clean|censored|blacklisted

	censoredWordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "censord_censored_words_total",
		Help: "Total number of words censored",
	})

	tempUsernamesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "censord_temp_usernames_total",
		Help: "Total number of temporary usernames assigned",
	})

	// Whitelist request metrics
	whitelistRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "censord_whitelist_requests_total",
		Help: "Whitelist requests by kind, transport and outcome",
	}, []string{"kind", "transport", "outcome"}) // kind=word|username transport=ws|webhook outcome=success|failure

	// Dataset metrics
	datasetVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "censord_dataset_version",
		Help: "Monotonic version of the loaded dataset snapshot",
	})

	datasetEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "censord_dataset_entries",
		Help: "Entries per dataset (last load)",
	}, []string{"dataset"})

	// Sync metrics
	syncFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "censord_sync_failures_total",
		Help: "Dataset sync failures by stage",
	}, []string{"stage"}) // stage=connect|mirror|load

	syncFilesDownloaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "censord_sync_files_downloaded",
		Help: "Files downloaded in the last mirror run",
	})

	syncDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "censord_sync_duration_seconds",
		Help:    "Time spent mirroring and reloading the dataset",
		Buckets: prometheus.DefBuckets,
	})

	// Link metrics
	wsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "censord_ws_connected",
		Help: "Whether the central server link is live (1) or down (0)",
	})

	wsPushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "censord_ws_pushes_total",
		Help: "Server pushes by outcome",
	}, []string{"outcome"}) // outcome=applied|rejected

	twitchSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "censord_twitch_sends_total",
		Help: "Twitch announcements by outcome",
	}, []string{"outcome"}) // outcome=success|dropped
)

func IncDecision(verdict string) { censorDecisionsTotal.WithLabelValues(verdict).Inc() }
func AddCensoredWords(n int)     { censoredWordsTotal.Add(float64(n)) }
func IncTempUsername()           { tempUsernamesTotal.Inc() }

func IncWhitelistRequest(kind, transport, outcome string) {
	whitelistRequestsTotal.WithLabelValues(kind, transport, outcome).Inc()
}

func RecordDatasetVersion(v uint64) { datasetVersion.Set(float64(v)) }
func RecordDatasetEntries(dataset string, n int) {
	datasetEntries.WithLabelValues(dataset).Set(float64(n))
}

func IncSyncFailure(stage string)      { syncFailuresTotal.WithLabelValues(stage).Inc() }
func RecordSyncFiles(n int)            { syncFilesDownloaded.Set(float64(n)) }
func ObserveSyncDuration(secs float64) { syncDurationSeconds.Observe(secs) }

func SetWSConnected(up bool) {
	if up {
		wsConnected.Set(1)
	} else {
		wsConnected.Set(0)
	}
}
func IncWSPush(outcome string)     { wsPushesTotal.WithLabelValues(outcome).Inc() }
func IncTwitchSend(outcome string) { twitchSendsTotal.WithLabelValues(outcome).Inc() }
