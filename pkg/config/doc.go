// Package config loads the kbase server configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults
//  2. global file: $XDG_CONFIG_HOME/kbase/config.yaml (os.UserConfigDir)
//  3. local file: .kbaserc.yaml in the working directory
//  4. environment variables prefixed with KBASE_ (for example KBASE_ADMIN_PORT)
//  5. command-line flags, applied by the caller
//
// An explicit --config file replaces steps 2 and 3.
package config
