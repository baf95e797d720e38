// Package change provides project change requests and their approval
// workflow.
//
// Change requests are numbered per project (CR-001, CR-002, ...) and move
// through a fixed state machine driven by actions:
//
//	submit     draft        -> submitted
//	review     submitted    -> under_review
//	approve    under_review -> approved
//	reject     under_review -> rejected
//	implement  approved     -> implemented
//	cancel     draft|submitted -> cancelled
//
// Every transition is recorded in the request history. Approving a request
// with a cost impact adds a "change" budget item and raises the project
// budget in the same transaction.
package change
