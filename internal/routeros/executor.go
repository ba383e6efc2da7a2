package routeros

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Resource kinds accepted by the sync endpoints, mapped to the RouterOS
// print command that lists them.
var resourceCommands = map[string]string{
	"secrets":    "/ppp/secret/print",
	"profiles":   "/ppp/profile/print",
	"pools":      "/ip/pool/print",
	"interfaces": "/interface/print",
	"active_ppp": "/ppp/active/print",
}

// CommandFor resolves a resource kind to its print command. Unknown kinds
// fail here, before any network I/O is attempted.
func CommandFor(resource string) (string, error) {
	cmd, ok := resourceCommands[resource]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}
	return cmd, nil
}

// ValidResource reports whether the resource kind is known.
func ValidResource(resource string) bool {
	_, ok := resourceCommands[resource]
	return ok
}

// Fetch opens a session, prints the given resource and closes the session.
// One connection per call; no session is reused across fetches.
func Fetch(ctx context.Context, creds Credentials, resource string, timeout time.Duration) ([]Row, error) {
	cmd, err := CommandFor(resource)
	if err != nil {
		return nil, err
	}

	s, err := Dial(ctx, creds, timeout)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.Run(cmd)
}

// ParseDisabled normalizes the polymorphic disabled field seen in router
// rows and in previously written cache files: the boolean true and the
// strings "true", "yes" and "1" all mean disabled. All other values,
// including absence, mean enabled.
func ParseDisabled(v interface{}) bool {
	switch d := v.(type) {
	case bool:
		return d
	case string:
		switch strings.ToLower(d) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}
