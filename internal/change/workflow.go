package change

import "fmt"

type edge struct {
	from []Status
	to   Status
}

var workflow = map[Action]edge{
	ActionSubmit:    {from: []Status{StatusDraft}, to: StatusSubmitted},
	ActionReview:    {from: []Status{StatusSubmitted}, to: StatusUnderReview},
	ActionApprove:   {from: []Status{StatusUnderReview}, to: StatusApproved},
	ActionReject:    {from: []Status{StatusUnderReview}, to: StatusRejected},
	ActionImplement: {from: []Status{StatusApproved}, to: StatusImplemented},
	ActionCancel:    {from: []Status{StatusDraft, StatusSubmitted}, to: StatusCancelled},
}

// Next returns the status an action leads to from the current status.
func Next(current Status, action Action) (Status, error) {
	e, ok := workflow[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	for _, s := range e.from {
		if s == current {
			return e.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s a request that is %s", ErrInvalidTransition, action, current)
}

// IsDecision reports whether an action is an approval decision requiring
// approver rights.
func IsDecision(a Action) bool {
	return a == ActionApprove || a == ActionReject
}

// RequiresManager reports whether an action is reserved for project
// managers rather than the requester.
func RequiresManager(a Action) bool {
	return a == ActionReview || IsDecision(a) || a == ActionImplement
}
