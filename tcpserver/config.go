package tcpserver

import "time"

// Config configures a TcpServer. Zero values are replaced by DefaultConfig's
// fields where that makes sense (see WithDefaults).
type Config struct {
	BindAddress    string
	Port           int
	UnitID         byte
	MaxConnections int64
	TimeoutMs      int
}

func DefaultConfig() Config {
	return Config{
		BindAddress:    "0.0.0.0",
		Port:           502,
		UnitID:         1,
		MaxConnections: 10,
		TimeoutMs:      30000,
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.BindAddress == "" {
		c.BindAddress = d.BindAddress
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.UnitID == 0 {
		c.UnitID = d.UnitID
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = d.MaxConnections
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = d.TimeoutMs
	}
	return c
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// drainTimeout is how long Stop() waits for in-flight sessions before
// forcing the connection registry clear.
const drainTimeout = 5 * time.Second
