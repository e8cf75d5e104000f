package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "tcp":
		return tcpTemplate, nil
	case "unix", "socket":
		return unixTemplate, nil
	case "tls":
		return tlsTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const tcpTemplate = `host = "127.0.0.1"
port = 9390
connect_timeout = "15s"
command_timeout = "20s"

username = "admin"
password_env = "GMP_PASSWORD"
`

const unixTemplate = `socket_path = "/run/gvmd/gvmd.sock"
connect_timeout = "15s"
command_timeout = "20s"

username = "admin"
password_env = "GMP_PASSWORD"
`

const tlsTemplate = `host = "scanner.example.internal"
port = 9390
connect_timeout = "15s"
command_timeout = "20s"

username = "admin"
password_env = "GMP_PASSWORD"

[tls]
enabled = true
ca_file = "/etc/gvm/ca.pem"
server_name = "scanner.example.internal"
`
