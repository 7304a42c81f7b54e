package http

import (
	"net"
	"os"
	"path/filepath"
	"strings"
)

func isIPv6(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() == nil
}

func defaultPort(scheme string) int {
	switch scheme {
	case "http", "ws":
		return 80
	case "https", "wss":
		return 443
	}
	return 0
}

// netrcAuth looks up credentials for host in the file named by $NETRC,
// falling back to ~/.netrc. The format is the classic token stream:
// machine/login/password entries plus an optional default entry.
func netrcAuth(host string) (BasicAuth, bool) {
	path := os.Getenv("NETRC")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return BasicAuth{}, false
		}
		path = filepath.Join(home, ".netrc")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return BasicAuth{}, false
	}

	entries := map[string]*BasicAuth{}
	var cur *BasicAuth
	tokens := strings.Fields(string(data))
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "machine":
			i++
			if i < len(tokens) {
				cur = &BasicAuth{}
				entries[tokens[i]] = cur
			}
		case "default":
			cur = &BasicAuth{}
			entries["*"] = cur
		case "login":
			i++
			if cur != nil && i < len(tokens) {
				cur.Username = tokens[i]
			}
		case "password":
			i++
			if cur != nil && i < len(tokens) {
				cur.Password = tokens[i]
			}
		}
	}
	if a, ok := entries[host]; ok {
		return *a, true
	}
	if a, ok := entries["*"]; ok {
		return *a, true
	}
	return BasicAuth{}, false
}
