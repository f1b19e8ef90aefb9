// Command plcsimd runs the desktop PLC simulator headlessly: Modbus TCP/RTU
// servers, scan cycle, and scenario replay, driven by a YAML/env/flag
// configuration.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
