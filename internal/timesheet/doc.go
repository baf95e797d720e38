// Package timesheet records hours worked against projects and runs the
// draft, submit, approve and reject cycle for them.
//
//	draft ──submit──▶ submitted ──approve──▶ approved
//	  ▲                   │
//	  └──edit── rejected ◀┘ reject
//
// Hours are stored in quarter-hour steps and a user may not book more than
// 24 hours on one day across all projects.
package timesheet
