package hostlink

import "fmt"

// TransportAssertionError reports a fabric-side assertion failure: either a
// bare TagAssert (File is empty) or a TagAssertRich carrying the source
// location, mirroring Protocol::add's "ERROR : assert from thread ..." path.
type TransportAssertionError struct {
	Thread uint32
	File   string
	Line   uint32
}

func (e *TransportAssertionError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("assert from thread 0x%x", e.Thread)
	}
	return fmt.Sprintf("assert from thread 0x%x at %s:%d", e.Thread, e.File, e.Line)
}

// UnknownProtocolTagError reports a control byte the idle state did not
// recognize as any of the documented tags.
type UnknownProtocolTagError struct {
	Thread uint32
	Tag    byte
}

func (e *UnknownProtocolTagError) Error() string {
	return fmt.Sprintf("thread 0x%x: unknown hostlink tag 0x%02x", e.Thread, e.Tag)
}

// FabricExitError is the orderly-termination signal carried by TagExit: the
// fabric finished running and reports code as its exit status.
type FabricExitError struct {
	Thread uint32
	Code   int
}

func (e *FabricExitError) Error() string {
	return fmt.Sprintf("thread 0x%x: fabric exit code %d", e.Thread, e.Code)
}
