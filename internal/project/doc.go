// Package project provides the project portfolio model: projects, their
// lifecycle status and team membership.
//
// Status changes follow a fixed lifecycle (see CanTransition). Completed and
// cancelled projects are terminal.
//
// List queries accept a scope restriction so callers can apply the
// department/manager/staff visibility rules resolved by the auth package.
package project
