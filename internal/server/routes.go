package server

import "github.com/jameshendricken/iot-dashboard/internal/obs"

// routes registers all HTTP handlers on the server's mux.
func (s *Server) routes() {
	// Auth entry points
	s.router.HandleFunc("GET /{$}", s.handleLoginPage)
	s.router.HandleFunc("POST /login", s.handleLogin)
	s.router.HandleFunc("GET /register", s.handleRegisterPage)
	s.router.HandleFunc("POST /register", s.handleRegister)
	s.router.HandleFunc("GET /reset-password", s.handleResetPasswordPage)
	s.router.HandleFunc("POST /reset-password", s.handleResetPassword)
	s.router.HandleFunc("POST /logout", s.handleLogout)

	// Telemetry dashboards
	s.router.HandleFunc("GET /dashboard", s.requireAuth(s.handleDashboard))
	s.router.HandleFunc("GET /dashboard/export.csv", s.requireAuth(s.handleDashboardExport))
	s.router.HandleFunc("GET /units", s.requireAuth(s.handleUnits))
	s.router.HandleFunc("GET /units/export.csv", s.requireAuth(s.handleUnitsExport))

	// Admin CRUD screens
	s.router.HandleFunc("GET /admin/devices", s.requireAdmin(s.handleAdminDevices))
	s.router.HandleFunc("POST /admin/devices/{id}", s.requireAdmin(s.handleAdminDeviceUpdate))
	s.router.HandleFunc("GET /admin/devices/export.csv", s.requireAdmin(s.handleAdminDevicesExport))
	s.router.HandleFunc("GET /admin/users", s.requireAdmin(s.handleAdminUsers))
	s.router.HandleFunc("POST /admin/users/{id}", s.requireAdmin(s.handleAdminUserUpdate))
	s.router.HandleFunc("GET /admin/users/export.csv", s.requireAdmin(s.handleAdminUsersExport))
	s.router.HandleFunc("GET /admin/organisations", s.requireAdmin(s.handleAdminOrgs))
	s.router.HandleFunc("GET /admin/organisations/export.csv", s.requireAdmin(s.handleAdminOrgsExport))
	s.router.HandleFunc("POST /admin/organisations", s.requireAdmin(s.handleAdminOrgCreate))
	s.router.HandleFunc("POST /admin/organisations/{id}", s.requireAdmin(s.handleAdminOrgUpdate))

	// Console (activity feed + backend status)
	s.router.HandleFunc("GET /console", s.requireAdmin(s.handleConsole))

	// JSON API
	s.router.HandleFunc("GET /api/v1/aggregate", s.requireAuth(s.apiAggregate))
	s.router.HandleFunc("GET /api/v1/status", s.requireAuth(s.apiStatus))

	// Operational endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", obs.Handler())
}
