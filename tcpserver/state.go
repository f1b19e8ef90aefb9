package tcpserver

import "github.com/ladderforge/plcsim/plcerr"

// State is the server lifecycle: Stopped -> Starting -> Running -> Stopping
// -> Stopped.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var (
	errAlreadyRunning   = plcerr.New(plcerr.CodeAlreadyRunning, "tcp server is already running")
	errNotRunning       = plcerr.New(plcerr.CodeNotRunning, "tcp server is not running")
	errShutdownTimeout  = plcerr.New(plcerr.CodeShutdownTimeout, "tcp server stop timed out waiting for sessions to drain")
)
