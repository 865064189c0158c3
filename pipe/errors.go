package pipe

import (
	"errors"
	"fmt"
)

// ConnectError is the numbered wiring error connect() reports (§7,
// §4.3). The numeric Code is preserved from the source format so that
// any tooling built against the original integers keeps working; Go
// callers should prefer errors.Is against the sentinel values below.
type ConnectError struct {
	Code int
	msg  string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("pipe: connect: %s (code %d)", e.msg, e.Code)
}

// Is makes ConnectError comparable by code via errors.Is, so
// errors.Is(err, ErrChannelMismatch) works regardless of which
// particular *ConnectError instance was returned.
func (e *ConnectError) Is(target error) bool {
	t, ok := target.(*ConnectError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func connErr(code int, msg string) *ConnectError { return &ConnectError{Code: code, msg: msg} }

// The eleven wiring error codes, verbatim from dt_connector_error_str.
var (
	ErrNoSuchDestNode   = connErr(1, "no such destination node")
	ErrNoSuchDestConn   = connErr(2, "no such destination connector")
	ErrDestNotRead      = connErr(3, "destination does not read")
	ErrDestInconsistent4 = connErr(4, "destination inconsistent")
	ErrDestInconsistent5 = connErr(5, "destination inconsistent")
	ErrDestInconsistent6 = connErr(6, "destination inconsistent")
	ErrNoSuchSrcNode    = connErr(7, "no such source node")
	ErrNoSuchSrcConn    = connErr(8, "no such source connector")
	ErrSrcNotWrite      = connErr(9, "source does not write")
	ErrChannelMismatch  = connErr(10, "channels do not match")
	ErrFormatMismatch   = connErr(11, "format does not match")
)

// Graph-build errors (§7): cycle detected, capacity exceeded, unknown
// parameter type, missing module class.
var (
	ErrCycleDetected       = errors.New("pipe: cycle detected")
	ErrCapacityExceeded    = errors.New("pipe: module or node capacity exceeded")
	ErrUnknownParamType    = errors.New("pipe: unknown parameter type")
	ErrMissingModuleClass  = errors.New("pipe: missing module class")
	ErrMissingSink         = errors.New("pipe: graph has no sink module")
)
