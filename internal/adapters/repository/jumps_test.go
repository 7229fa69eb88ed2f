package repository_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/youthperformance/xlens/internal/adapters/repository"
	"github.com/youthperformance/xlens/internal/domain/model"
)

func newJump(id string) *model.Jump {
	return &model.Jump{ID: id, AthleteID: "ath_1", SessionID: "cs_1"}
}

func TestJumpLifecycle(t *testing.T) {
	Convey("Given a jump store", t, func() {
		s := repository.NewInMemoryJumpStore()
		ctx := context.Background()

		Convey("When a jump is created", func() {
			So(s.Create(ctx, newJump("j1")), ShouldBeNil)

			got, err := s.Get(ctx, "j1")
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.StatusUploading)

			Convey("Then creating it again is a duplicate", func() {
				So(s.Create(ctx, newJump("j1")), ShouldEqual, repository.ErrDuplicateJump)
			})

			Convey("And the happy path walks uploading to complete", func() {
				So(s.Transition(ctx, "j1", model.StatusUploading, model.StatusProcessing), ShouldBeNil)
				So(s.Transition(ctx, "j1", model.StatusProcessing, model.StatusComplete), ShouldBeNil)

				got, err := s.Get(ctx, "j1")
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusComplete)
				So(got.ProcessedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And a terminal state never transitions again", func() {
				So(s.Transition(ctx, "j1", model.StatusUploading, model.StatusProcessing), ShouldBeNil)
				So(s.Transition(ctx, "j1", model.StatusProcessing, model.StatusFlagged), ShouldBeNil)
				err := s.Transition(ctx, "j1", model.StatusFlagged, model.StatusComplete)
				So(err, ShouldEqual, repository.ErrInvalidTransition)
			})

			Convey("And skipping processing is rejected", func() {
				err := s.Transition(ctx, "j1", model.StatusUploading, model.StatusComplete)
				So(err, ShouldEqual, repository.ErrInvalidTransition)
			})

			Convey("And a stale from-state loses the claim race", func() {
				So(s.Transition(ctx, "j1", model.StatusUploading, model.StatusProcessing), ShouldBeNil)
				err := s.Transition(ctx, "j1", model.StatusUploading, model.StatusProcessing)
				So(err, ShouldEqual, repository.ErrInvalidTransition)
			})
		})

		Convey("When transitioning an unknown jump", func() {
			err := s.Transition(ctx, "missing", model.StatusUploading, model.StatusProcessing)
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})
}

func TestSetResult(t *testing.T) {
	Convey("Given a processing jump", t, func() {
		s := repository.NewInMemoryJumpStore()
		ctx := context.Background()
		So(s.Create(ctx, newJump("j1")), ShouldBeNil)
		So(s.Transition(ctx, "j1", model.StatusUploading, model.StatusProcessing), ShouldBeNil)

		Convey("When the measurement result lands", func() {
			err := s.SetResult(ctx, "j1", &model.Jump{
				HeightInches: 24.5,
				HeightCm:     62.23,
				FlightTimeMs: 712,
				Confidence:   0.9,
				Gates:        &model.GateScores{Attestation: 1, CryptoValid: true, Liveness: 0.95, Physics: 0.88},
				Tier:         "measured",
			})
			So(err, ShouldBeNil)

			got, err := s.Get(ctx, "j1")
			So(err, ShouldBeNil)
			So(got.HeightInches, ShouldEqual, 24.5)
			So(got.Gates.CryptoValid, ShouldBeTrue)

			Convey("Then mutating the returned copy leaves the store untouched", func() {
				got.Gates.CryptoValid = false
				again, err := s.Get(ctx, "j1")
				So(err, ShouldBeNil)
				So(again.Gates.CryptoValid, ShouldBeTrue)
			})
		})

		Convey("When the jump is already terminal", func() {
			So(s.Transition(ctx, "j1", model.StatusProcessing, model.StatusFailed), ShouldBeNil)
			err := s.SetResult(ctx, "j1", &model.Jump{HeightInches: 24.5})
			So(err, ShouldEqual, repository.ErrInvalidTransition)
		})
	})
}

func TestLinkCertificate(t *testing.T) {
	Convey("Given a completed jump", t, func() {
		s := repository.NewInMemoryJumpStore()
		ctx := context.Background()
		So(s.Create(ctx, newJump("j1")), ShouldBeNil)
		So(s.Transition(ctx, "j1", model.StatusUploading, model.StatusProcessing), ShouldBeNil)
		So(s.Transition(ctx, "j1", model.StatusProcessing, model.StatusComplete), ShouldBeNil)

		Convey("When a certificate is linked", func() {
			So(s.LinkCertificate(ctx, "j1", "vpc_1"), ShouldBeNil)
			got, err := s.Get(ctx, "j1")
			So(err, ShouldBeNil)
			So(got.CertificateID, ShouldEqual, "vpc_1")
		})
	})

	Convey("Given a flagged jump", t, func() {
		s := repository.NewInMemoryJumpStore()
		ctx := context.Background()
		So(s.Create(ctx, newJump("j2")), ShouldBeNil)
		So(s.Transition(ctx, "j2", model.StatusUploading, model.StatusProcessing), ShouldBeNil)
		So(s.Transition(ctx, "j2", model.StatusProcessing, model.StatusFlagged), ShouldBeNil)

		Convey("Then no certificate can attach", func() {
			So(s.LinkCertificate(ctx, "j2", "vpc_1"), ShouldEqual, repository.ErrInvalidTransition)
		})
	})
}
