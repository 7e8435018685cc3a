package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrAuthRejected    = fmt.Errorf("handshake authentication rejected")
	ErrUnknownRoomKind = fmt.Errorf("unknown room kind")
	ErrUnknownCommand  = fmt.Errorf("unknown room command")
	ErrStoreDegraded   = fmt.Errorf("durable room store degraded")
)
