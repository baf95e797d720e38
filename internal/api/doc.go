// Package api implements the pmdesk HTTP JSON API and WebSocket feed.
//
// This package provides:
//   - REST endpoints under /api/v1 for projects, tasks, sprints, risks,
//     change requests, assets, budgets, time entries, users and departments
//   - cookie and bearer authentication with refresh rotation and CSRF checks
//   - project scoping: every resource read or write is filtered through the
//     caller's auth.ProjectScope
//   - XLSX exports, a dashboard and an admin-only audit trail
//   - a WebSocket hub that relays domain events to subscribed clients
//
// # Security
//
// Browsers authenticate with HttpOnly cookies set at login and must echo the
// pmdesk_csrf cookie in an X-CSRF-Token header on unsafe methods. Scripts
// send "Authorization: Bearer <jwt|pmk_ token>" and are exempt from CSRF.
// Projects outside the caller's scope answer 404 so their existence is not
// revealed; visible projects the caller cannot change answer 403.
//
// WebSocket connections authenticate with single-use tickets from
// POST /auth/ws-ticket so tokens never appear in URLs.
//
// # Graceful Degradation
//
// MQTT and InfluxDB are optional. Without them events only reach WebSocket
// clients and request metrics are not recorded.
package api
