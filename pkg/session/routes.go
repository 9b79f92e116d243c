package session

import "strings"

type Route string

const (
	RouteLogin         Route = "/login"
	RouteSelectCompany Route = "/select-company"
	RouteCreateCompany Route = "/create-company"
	RouteDashboard     Route = "/"
	RouteReservations  Route = "/reservations"
	RouteProperties    Route = "/properties"
	RouteChats         Route = "/chats"
	RouteAgents        Route = "/agents"
	RouteKnowledgeBase Route = "/knowledge-base"
)

// Access is the requirement a route places on the session.
type Access int

const (
	AccessPublic Access = iota
	AccessRequireAuth
	AccessRequireCompany
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessRequireAuth:
		return "require-auth"
	case AccessRequireCompany:
		return "require-company"
	default:
		return "unknown"
	}
}

var routeAccess = map[Route]Access{
	RouteLogin:         AccessPublic,
	RouteSelectCompany: AccessRequireAuth,
	RouteCreateCompany: AccessRequireAuth,
	RouteDashboard:     AccessRequireCompany,
	RouteReservations:  AccessRequireCompany,
	RouteProperties:    AccessRequireCompany,
	RouteChats:         AccessRequireCompany,
	RouteAgents:        AccessRequireCompany,
	RouteKnowledgeBase: AccessRequireCompany,
}

// Routes lists every known destination in navigation order.
func Routes() []Route {
	return []Route{
		RouteLogin,
		RouteSelectCompany,
		RouteCreateCompany,
		RouteDashboard,
		RouteReservations,
		RouteProperties,
		RouteChats,
		RouteAgents,
		RouteKnowledgeBase,
	}
}

// AccessFor resolves a navigation path. Trailing slashes are ignored.
func AccessFor(path string) (Access, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	access, ok := routeAccess[Route(path)]
	return access, ok
}
