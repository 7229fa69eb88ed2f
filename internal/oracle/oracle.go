// Package oracle defines the contract for extracting measurement evidence
// from submitted video and sensor recordings.
package oracle

import (
	"context"

	"github.com/youthperformance/xlens/internal/domain/model"
)

// Request identifies the artifacts to analyze and the nonce the recording
// must show on camera. CalibrationHeightIn is the athlete's self-reported
// standing height; zero means no photogrammetric cross-check is possible.
type Request struct {
	JumpID              string  `json:"jumpId"`
	VideoURL            string  `json:"videoUrl"`
	SensorURL           string  `json:"sensorUrl"`
	DisplayNonce        string  `json:"displayNonce"`
	FPS                 float64 `json:"fps"`
	CalibrationHeightIn float64 `json:"calibrationHeightIn,omitempty"`
}

// Analyzer extracts takeoff and landing evidence from a recording. The
// implementation may call an external vision service and may take seconds.
type Analyzer interface {
	// Analyze honors ctx for cancellation and deadline.
	Analyze(ctx context.Context, req Request) (*model.OracleAnalysis, error)
}
