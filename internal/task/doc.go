// Package task provides work items and the sprints that time-box them.
//
// A task belongs to one project and optionally to one of that project's
// sprints; tasks without a sprint form the project backlog. Each project has
// at most one active sprint. Completing a sprint returns its unfinished
// tasks to the backlog.
package task
