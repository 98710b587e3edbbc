// ABOUTME: Navigation targets for the tutor screen and the Navigator/Notifier ports
// ABOUTME: A route names an agent and optionally a conversation so a reload can resume it

package conversation

import (
	"fmt"
	"strings"
)

// routeRoot is the path of the agent listing screen, the fallback target.
const routeRoot = "/tutor"

// Route is a navigation target.
type Route struct {
	AgentID        string
	ConversationID string
}

// FallbackRoute is the safe listing screen used when a session cannot load.
var FallbackRoute = Route{}

// Path renders the route as an address.
func (r Route) Path() string {
	switch {
	case r.AgentID == "":
		return routeRoot
	case r.ConversationID == "":
		return routeRoot + "/" + r.AgentID
	default:
		return routeRoot + "/" + r.AgentID + "/" + r.ConversationID
	}
}

func (r Route) String() string {
	return r.Path()
}

// ParseRoute parses an address produced by Route.Path.
func ParseRoute(path string) (Route, error) {
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")
	if parts[0] != strings.Trim(routeRoot, "/") || len(parts) > 3 {
		return Route{}, fmt.Errorf("invalid route %q", path)
	}
	var r Route
	if len(parts) > 1 {
		r.AgentID = parts[1]
	}
	if len(parts) > 2 {
		r.ConversationID = parts[2]
	}
	if r.AgentID == "" && r.ConversationID != "" {
		return Route{}, fmt.Errorf("invalid route %q", path)
	}
	return r, nil
}

// Navigator updates the externally visible address.
type Navigator interface {
	Navigate(route Route)
}

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Notifier surfaces transient notifications.
type Notifier interface {
	Notify(n Notification)
}

type nopNavigator struct{}

func (nopNavigator) Navigate(Route) {}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
