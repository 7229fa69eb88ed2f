package oracle_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/youthperformance/xlens/internal/oracle"
)

func TestStubAnalyzer(t *testing.T) {
	Convey("Given a stub analyzer with tight latency", t, func() {
		a := oracle.NewStubAnalyzer(oracle.WithLatencyRange(time.Millisecond, 2*time.Millisecond))
		ctx := context.Background()
		req := oracle.Request{JumpID: "jump-1", DisplayNonce: "ABC234"}

		Convey("When analyzing a jump", func() {
			got, err := a.Analyze(ctx, req)
			So(err, ShouldBeNil)

			Convey("Then the verdict is plausible", func() {
				So(got.LandingFrame, ShouldBeGreaterThan, got.TakeoffFrame)
				So(got.FPS, ShouldEqual, 30.0)
				So(got.IMUCorrelation, ShouldBeBetweenOrEqual, 0.8, 1.0)
				So(got.NonceMatches, ShouldBeTrue)
			})

			Convey("And a retry measures identically", func() {
				again, err := a.Analyze(ctx, req)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, got)
			})
		})

		Convey("When a calibration height is supplied", func() {
			calibrated := req
			calibrated.CalibrationHeightIn = 68
			got, err := a.Analyze(ctx, calibrated)
			So(err, ShouldBeNil)

			Convey("Then a photogrammetric estimate comes back", func() {
				So(got.PhotoHeightIn, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := a.Analyze(cancelled, req)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestHTTPAnalyzer(t *testing.T) {
	Convey("Given a vision service endpoint", t, func() {
		ctx := context.Background()
		req := oracle.Request{JumpID: "jump-1", VideoURL: "blob://video", DisplayNonce: "ABC234"}

		Convey("When the service responds with a verdict", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"takeoffFrame":40,"landingFrame":52,"fps":30,"nonceVisible":true,"nonceMatches":true,"imuCorrelation":0.91,"confidence":0.88}`))
			}))
			defer srv.Close()

			a := oracle.NewHTTPAnalyzer(srv.URL)
			got, err := a.Analyze(ctx, req)
			So(err, ShouldBeNil)
			So(got.TakeoffFrame, ShouldEqual, 40)
			So(got.LandingFrame, ShouldEqual, 52)
			So(got.IMUCorrelation, ShouldAlmostEqual, 0.91, 0.001)
		})

		Convey("When the service errors", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			a := oracle.NewHTTPAnalyzer(srv.URL)
			_, err := a.Analyze(ctx, req)
			So(err, ShouldNotBeNil)
		})

		Convey("When the response does not parse", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			}))
			defer srv.Close()

			a := oracle.NewHTTPAnalyzer(srv.URL)
			got, err := a.Analyze(ctx, req)

			Convey("Then it degrades to a flagged analysis", func() {
				So(err, ShouldBeNil)
				So(got.Flags, ShouldContain, "analysis_unparseable")
				So(got.Confidence, ShouldEqual, 0)
			})
		})

		Convey("When the service hangs past the timeout", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// Drain the body so the server detects the client
				// disconnect and cancels the request context.
				_, _ = io.Copy(io.Discard, r.Body)
				<-r.Context().Done()
			}))
			defer srv.Close()

			a := oracle.NewHTTPAnalyzer(srv.URL, oracle.WithTimeout(50*time.Millisecond))
			_, err := a.Analyze(ctx, req)
			So(err, ShouldNotBeNil)
		})
	})
}
