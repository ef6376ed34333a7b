package server

import (
	"os"

	"github.com/chimebell/chime/common"
)

// secretFromEnv supplies the TCP bearer secret when the config file
// carries none.
func secretFromEnv() string {
	return os.Getenv(common.RPCSecretEnv)
}
