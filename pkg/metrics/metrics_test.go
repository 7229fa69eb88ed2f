package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline events", func() {
			RecordJumpSubmitted()
			RecordJumpCompleted()
			RecordJumpFlagged("physics_implausible")
			RecordJumpFailed()
			RecordTierAssigned("measured")
			RecordGateScore("liveness", 0.9)
			RecordCryptoCheck("valid")
			RecordOracleCall("ok")
			RecordOracleLatency(120)
			RecordSessionCreated()
			RecordSessionRejected("expired")
			RecordDeviceRegistered("secure_element")
			RecordCertificateIssued()
			RecordLeaderboardUpdate()
			RecordDailyCapRejection()
			UpdateQueueSize(3)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.03)
			UpdateWorkerCount(4)
			RecordHTTPRequest("/jumps", "POST", "202")
			RecordHTTPRequestDuration("/jumps", "POST", "202", 12.5)

			Convey("Then the registry gathers without errors", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestManagerOptions(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("testns"),
			WithSubsystem("testsub"),
			WithHistogramBuckets([]float64{1, 10, 100}),
		)

		Convey("Then options are applied", func() {
			So(m.namespace, ShouldEqual, "testns")
			So(m.subsystem, ShouldEqual, "testsub")
			So(m.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
		})

		Convey("Then metrics register on the private registry", func() {
			m.jumpsSubmitted.Inc()
			families, err := reg.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
