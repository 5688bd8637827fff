package protocol

import "errors"

// ErrMalformedMessage is returned when a payload ends early or carries a value
// its layout cannot hold. The offending message is dropped by the caller.
var ErrMalformedMessage = errors.New("malformed message")
