// Package common provides the types and constants shared between the
// chime daemon and its clients.
package common

// Environment variable names recognized across chime.
const (
	// ConfigDirEnv overrides the configuration directory.
	ConfigDirEnv = "CHIME_CONFIG_DIR"

	// SocketPathEnv overrides the unix control socket path.
	SocketPathEnv = "CHIME_SOCKET_PATH"

	// PipeNameEnv overrides the Windows control pipe name.
	PipeNameEnv = "CHIME_PIPE_NAME"

	// RPCSecretEnv supplies the bearer secret for TCP control
	// connections without putting it in the config file.
	RPCSecretEnv = "CHIME_RPC_SECRET"

	// CredKeyEnv supplies the credential store key when no OS keyring
	// is available (headless systems).
	CredKeyEnv = "CHIME_CRED_KEY"

	// DebugEnv enables verbose daemon logging.
	DebugEnv = "CHIME_DEBUG"
)
