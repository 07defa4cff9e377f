package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors are registered under the kala namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.scoresRecorded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "kala_service_scores_recorded_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("folk"),
				WithSubsystem("test"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.playersTotal.Set(3)

			Convey("Then names and const labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var labels []string
				for _, f := range families {
					if f.GetName() != "folk_test_players_total" {
						continue
					}
					for _, l := range f.GetMetric()[0].GetLabel() {
						labels = append(labels, l.GetName()+"="+l.GetValue())
					}
				}
				So(labels, ShouldContain, "env=test")
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording leaderboard activity", func() {
			before := testutil.ToFloat64(globalManager.scoresRecorded)
			RecordScoreRecorded(1.5)
			RecordScoreRecorded(2.5)
			RecordScoreRejected("validation")
			UpdatePlayersTotal(42)

			Convey("Then the collectors reflect it", func() {
				So(testutil.ToFloat64(globalManager.scoresRecorded)-before, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.playersTotal), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.scoresRejected.WithLabelValues("validation")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording rating activity", func() {
			before := testutil.ToFloat64(globalManager.ratingRecomputes)
			RecordReviewAttached()
			RecordReviewRejected("conflict")
			RecordReviewDeactivated()
			RecordReviewReported()
			RecordRatingRecompute(0.3)
			RecordOrderPlaced()
			RecordOrderTransition("Delivered")

			Convey("Then recomputes are counted", func() {
				So(testutil.ToFloat64(globalManager.ratingRecomputes)-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.orderTransitions.WithLabelValues("Delivered")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording infrastructure activity", func() {
			RecordStoreLatency("memory", "upsert", 0.2)
			RecordStoreError("redis", "rank")
			RecordDuplicateSubmission("score")
			RecordEventPublished("score.recorded")
			RecordEventPublishError("score.recorded")
			RecordEventDispatched("score.recorded", 0.1)
			UpdateDispatcherWorkers(4)
			UpdateLiveClients(2)
			RecordOutboxDropped()
			RecordRateLimited("/leaderboard/submit-score")
			RecordHTTPRequest("/leaderboard", "GET", "200")
			RecordHTTPRequestDuration("/leaderboard", "GET", "200", 3)
			RecordErrorByComponent("rating", "conflict")
			RecordErrorByEndpoint("/marketplace/reviews", "POST", "conflict")
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.05)

			Convey("Then the exposition registry contains them", func() {
				So(testutil.ToFloat64(globalManager.liveClients), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.dispatcherWorkers), ShouldEqual, 4)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "kala_service_store_latency_milliseconds")
				So(joined, ShouldContainSubstring, "kala_service_http_requests_total")
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled global manager", t, func() {
		saved := globalManager
		globalManager = NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
		Reset(func() { globalManager = saved })

		Convey("Then helpers do not touch the collectors", func() {
			RecordScoreRecorded(1)
			UpdateLiveClients(9)
			So(testutil.ToFloat64(globalManager.scoresRecorded), ShouldEqual, 0)
			So(testutil.ToFloat64(globalManager.liveClients), ShouldEqual, 0)
		})
	})
}
