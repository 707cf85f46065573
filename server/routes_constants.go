package server

const (
	RouteLogin        = "/login"
	RouteUnauthorized = "/unauthorized"

	RouteAuthLogin   = "/auth/login"
	RouteAuthLogout  = "/auth/logout"
	RouteAuthSession = "/auth/session"

	RouteAdminDashboard = "/admin/dashboard"
)
