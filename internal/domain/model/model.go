// Package model contains domain models passed between layers.
package model

import "time"

// Status tracks a jump submission through its one-directional lifecycle.
// Transitions: uploading -> processing -> complete | flagged | failed.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFlagged    Status = "flagged"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusFlagged, StatusFailed:
		return true
	default:
		return false
	}
}

// Platform identifies the capture device OS.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// HardwareLevel describes how well a device key is shielded from extraction.
type HardwareLevel string

const (
	HardwareSecureElement HardwareLevel = "secure_element"
	HardwareTEE           HardwareLevel = "tee"
	HardwareSoftware      HardwareLevel = "software"
)

// DeviceDescriptor identifies the capture device inside a proof payload.
type DeviceDescriptor struct {
	Platform   Platform `json:"platform"`
	Model      string   `json:"model"`
	OSVersion  string   `json:"osVersion"`
	AppVersion string   `json:"appVersion"`
}

// Capture carries the timing and device facts attested by the client.
type Capture struct {
	TestType    string           `json:"testType"`
	StartedAtMs int64            `json:"startedAtMs"`
	EndedAtMs   int64            `json:"endedAtMs"`
	FPS         float64          `json:"fps"`
	Device      DeviceDescriptor `json:"device"`
}

// ContentHashes binds the uploaded artifacts to the signed payload.
type ContentHashes struct {
	VideoSHA256    string `json:"videoSha256"`
	SensorSHA256   string `json:"sensorSha256"`
	MetadataSHA256 string `json:"metadataSha256"`
}

// Signature is the device key's attestation over the payload.
type Signature struct {
	Algorithm string `json:"algorithm"`
	KeyID     string `json:"keyId"`
	Value     string `json:"value"` // base64 DER signature
}

// GPS is an optional capture location fix.
type GPS struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	AccuracyM    float64 `json:"accuracyM"`
	CapturedAtMs int64   `json:"capturedAtMs"`
}

// ProofPayload is the signed attestation structure submitted with every
// capture. The signature covers the payload with Signature.Value blanked.
type ProofPayload struct {
	SessionID string        `json:"sessionId"`
	Nonce     string        `json:"nonce"`
	Capture   Capture       `json:"capture"`
	Hashes    ContentHashes `json:"hashes"`
	Signature Signature     `json:"signature"`
	GPS       *GPS          `json:"gps,omitempty"`
}

// GateScores holds the four independent trust signals. All are in [0,1]
// except CryptoValid which is a hard boolean.
type GateScores struct {
	Attestation float64 `json:"attestation"`
	CryptoValid bool    `json:"cryptoValid"`
	Liveness    float64 `json:"liveness"`
	Physics     float64 `json:"physics"`
}

// OracleAnalysis is the structured result returned by the external
// video-analysis oracle, preserved on the jump for audit.
type OracleAnalysis struct {
	TakeoffFrame   int      `json:"takeoffFrame"`
	LandingFrame   int      `json:"landingFrame"`
	FPS            float64  `json:"fps"`
	NonceVisible   bool     `json:"nonceVisible"`
	NonceMatches   bool     `json:"nonceMatches"`
	IMUCorrelation float64  `json:"imuCorrelation"`
	Confidence     float64  `json:"confidence"` // analyzer's self-assessed certainty in [0,1]
	PhotoHeightIn  float64  `json:"photoHeightIn,omitempty"`
	Flags          []string `json:"flags,omitempty"`
}

// Jump is one measurement attempt.
type Jump struct {
	ID              string
	AthleteID       string
	SessionID       string
	VideoBlobID     string
	SensorBlobID    string
	Proof           ProofPayload
	IsPractice      bool
	Status          Status
	HeightInches    float64
	HeightCm        float64
	FlightTimeMs    float64
	Confidence      float64
	Gates           *GateScores
	Analysis        *OracleAnalysis
	Tier            string
	Issues          []string
	CertificateID   string
	CreatedAt       time.Time
	ProcessedAt     time.Time
}

// MeasurementTask is the unit of deferred work flowing through the queue.
type MeasurementTask struct {
	JumpID   string
	Attempt  int
	Deadline time.Time
}
