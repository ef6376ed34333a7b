package chimecli

import (
	"log"
	"os"
	"time"

	"github.com/chimebell/chime/common"
)

const socketDialTimeout = 100 * time.Millisecond

// The request host is a placeholder; the transport always dials the
// local socket or pipe.
const (
	baseURL = "http://chimed"
	wsURL   = "ws://chimed/ws"
)

func rpcURL() string {
	return baseURL + "/rpc"
}

// debugMode returns true if CHIME_DEBUG=1.
func debugMode() bool {
	return os.Getenv(common.DebugEnv) == "1"
}

// debugLog logs only if debugMode() is true.
func debugLog(format string, args ...any) {
	if debugMode() {
		log.Printf(format, args...)
	}
}
