package oracle

import "errors"

// ErrAnalysisFailed is returned when the vision service rejects a request.
var ErrAnalysisFailed = errors.New("analysis service failed")
