package measure

import "errors"

// ErrUnreadableAnalysis is returned when the vision service responded but
// the verdict could not be read; the attempt may be retried.
var ErrUnreadableAnalysis = errors.New("unreadable analysis verdict")
