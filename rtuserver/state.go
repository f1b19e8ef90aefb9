package rtuserver

import "github.com/ladderforge/plcsim/plcerr"

// State mirrors tcpserver's lifecycle, minus the Starting and Stopping steps: the RTU
// loop is a single goroutine that exits promptly on shutdown signal.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

var (
	errAlreadyRunning = plcerr.New(plcerr.CodeAlreadyRunning, "rtu server is already running")
	errNotRunning     = plcerr.New(plcerr.CodeNotRunning, "rtu server is not running")
)
