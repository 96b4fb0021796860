package pipeline

import "errors"

// ErrVerificationFailed reports that an external tool exited successfully
// but the artifact it was supposed to produce is missing.
var ErrVerificationFailed = errors.New("output verification failed")
