package registry_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/internal/registry"
)

func register(r *registry.Registry, pub string) *registry.DeviceKey {
	key, _, err := r.Register(context.Background(), registry.RegisterInput{
		AthleteID:     "athlete-1",
		PublicKey:     pub,
		Platform:      model.PlatformIOS,
		DeviceModel:   "iPhone15,2",
		OSVersion:     "17.4",
		HardwareLevel: model.HardwareSecureElement,
	})
	So(err, ShouldBeNil)
	return key
}

func TestRegister(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		r := registry.New()
		ctx := context.Background()

		Convey("When a key is registered", func() {
			key := register(r, "pub-a")

			Convey("Then it starts fully trusted", func() {
				So(key.ID, ShouldStartWith, "dk_")
				So(key.TrustScore, ShouldEqual, 1.0)
				So(key.Revoked(), ShouldBeFalse)
			})

			Convey("And re-registering the same public key is idempotent", func() {
				again, created, err := r.Register(ctx, registry.RegisterInput{
					AthleteID: "athlete-1",
					PublicKey: "pub-a",
				})
				So(err, ShouldBeNil)
				So(created, ShouldBeFalse)
				So(again.ID, ShouldEqual, key.ID)
				So(r.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When registration omits the public key", func() {
			_, _, err := r.Register(ctx, registry.RegisterInput{AthleteID: "athlete-1"})
			So(err, ShouldEqual, registry.ErrMissingPublicKey)
		})
	})
}

func TestRevoke(t *testing.T) {
	Convey("Given a registered key", t, func() {
		r := registry.New()
		ctx := context.Background()
		key := register(r, "pub-b")

		Convey("When the key is revoked", func() {
			err := r.Revoke(ctx, key.ID, "reported stolen")
			So(err, ShouldBeNil)

			Convey("Then it no longer validates", func() {
				v := r.Validate(ctx, key.ID)
				So(v.Valid, ShouldBeFalse)
				So(v.Reason, ShouldContainSubstring, "revoked")
			})

			Convey("And trust is pinned to zero", func() {
				got, err := r.Get(ctx, key.ID)
				So(err, ShouldBeNil)
				So(got.TrustScore, ShouldEqual, 0)
				So(got.RevocationReason, ShouldEqual, "reported stolen")
			})

			Convey("And a second revoke fails", func() {
				So(r.Revoke(ctx, key.ID, "again"), ShouldEqual, registry.ErrAlreadyRevoked)
			})
		})

		Convey("When revoking an unknown key", func() {
			So(r.Revoke(ctx, "dk_missing", "x"), ShouldEqual, registry.ErrKeyNotFound)
		})
	})
}

func TestDegradeTrust(t *testing.T) {
	Convey("Given a fully trusted key", t, func() {
		r := registry.New()
		ctx := context.Background()
		key := register(r, "pub-c")

		Convey("When trust is degraded", func() {
			score, err := r.DegradeTrust(ctx, key.ID, 0.6)
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 0.6)

			Convey("Then a higher proposal cannot raise it back", func() {
				score, err := r.DegradeTrust(ctx, key.ID, 0.9)
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 0.6)
			})

			Convey("And a lower proposal lowers it further", func() {
				score, err := r.DegradeTrust(ctx, key.ID, 0.3)
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 0.3)
			})
		})

		Convey("When the proposal is out of range it is clamped", func() {
			score, err := r.DegradeTrust(ctx, key.ID, -2)
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 0)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the default trust floor", t, func() {
		r := registry.New()
		ctx := context.Background()

		Convey("When validating an unknown key", func() {
			v := r.Validate(ctx, "dk_nope")
			So(v.Valid, ShouldBeFalse)
			So(v.Reason, ShouldContainSubstring, "not found")
		})

		Convey("When a key drops below the floor", func() {
			key := register(r, "pub-d")
			_, err := r.DegradeTrust(ctx, key.ID, 0.4)
			So(err, ShouldBeNil)

			v := r.Validate(ctx, key.ID)
			So(v.Valid, ShouldBeFalse)
			So(v.Reason, ShouldContainSubstring, "trust too low")
		})

		Convey("When a key sits exactly on the floor it still validates", func() {
			key := register(r, "pub-e")
			_, err := r.DegradeTrust(ctx, key.ID, 0.5)
			So(err, ShouldBeNil)

			v := r.Validate(ctx, key.ID)
			So(v.Valid, ShouldBeTrue)
			So(v.TrustScore, ShouldEqual, 0.5)
			So(v.HardwareLevel, ShouldEqual, model.HardwareSecureElement)
		})
	})
}

func TestVerifyES256(t *testing.T) {
	Convey("Given a P-256 key pair and a signed message", t, func() {
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		So(err, ShouldBeNil)
		der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
		So(err, ShouldBeNil)
		pubB64 := base64.StdEncoding.EncodeToString(der)

		message := []byte(`{"sessionId":"s1","nonce":"n1"}`)
		digest := sha256.Sum256(message)

		Convey("When the signature is ASN.1 DER", func() {
			sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
			So(err, ShouldBeNil)

			ok, err := registry.VerifyES256(pubB64, message, base64.StdEncoding.EncodeToString(sig))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("When the signature is raw r||s", func() {
			r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
			So(err, ShouldBeNil)
			raw := make([]byte, 64)
			r.FillBytes(raw[:32])
			s.FillBytes(raw[32:])

			ok, err := registry.VerifyES256(pubB64, message, base64.StdEncoding.EncodeToString(raw))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("When the message is tampered", func() {
			sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
			So(err, ShouldBeNil)

			ok, err := registry.VerifyES256(pubB64, []byte("tampered"), base64.StdEncoding.EncodeToString(sig))
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When the public key is garbage", func() {
			_, err := registry.VerifyES256("!!!", message, "AAAA")
			So(err, ShouldNotBeNil)
		})
	})
}
