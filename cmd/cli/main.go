// qparse - Qmodem capture log reporter
//
// qparse reconstructs dial-up test calls from Qmodem capture logs and
// reports connect rates, handshake times, download throughput, and link
// diagnostics pulled from the modem's status screens.
package main

import (
	"os"

	"github.com/bwann/qparse/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
