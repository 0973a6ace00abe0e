package domain

import "fmt"

// ApprovalAction is an action applied to a payment through the state
// machine. submit/approve/reject come from human actors; the rest are
// driven by the execution collaborator.
type ApprovalAction string

const (
	ActionSubmit   ApprovalAction = "submit"
	ActionApprove  ApprovalAction = "approve"
	ActionReject   ApprovalAction = "reject"
	ActionExecute  ApprovalAction = "execute"
	ActionProcess  ApprovalAction = "process"
	ActionComplete ApprovalAction = "complete"
	ActionFail     ApprovalAction = "fail"
)

// SystemActor is the actor id recorded for system-driven transitions.
const SystemActor = "system"

type transitionKey struct {
	from   PaymentStatus
	action ApprovalAction
}

// transitions is the full status table; anything absent is illegal.
var transitions = map[transitionKey]PaymentStatus{
	{PaymentStatusDraft, ActionSubmit}:            PaymentStatusPendingApproval,
	{PaymentStatusPendingApproval, ActionApprove}: PaymentStatusApproved,
	{PaymentStatusPendingApproval, ActionReject}:  PaymentStatusRejected,
	{PaymentStatusApproved, ActionExecute}:        PaymentStatusSubmitted,
	{PaymentStatusSubmitted, ActionProcess}:       PaymentStatusProcessing,
	{PaymentStatusProcessing, ActionComplete}:     PaymentStatusCompleted,
	{PaymentStatusProcessing, ActionFail}:         PaymentStatusFailed,
}

func systemAction(a ApprovalAction) bool {
	switch a {
	case ActionExecute, ActionProcess, ActionComplete, ActionFail:
		return true
	}
	return false
}

// NextStatus resolves the status a payment moves to when actor applies
// action, enforcing the maker-checker guards:
//   - submit is reserved to the payment's creator,
//   - approve/reject require an actor other than the creator (checked
//     before the table so self-approval is rejected in any state),
//   - execute/process/complete/fail are reserved to the system actor.
//
// Illegal combinations return ErrSelfApproval or ErrInvalidTransition and
// the payment must be left unchanged by the caller.
func NextStatus(p Payment, actor string, action ApprovalAction) (PaymentStatus, error) {
	if (action == ActionApprove || action == ActionReject) && actor == p.CreatedBy {
		return "", fmt.Errorf("%w: %s by creator %s", ErrSelfApproval, action, actor)
	}
	next, ok := transitions[transitionKey{p.Status, action}]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, p.Status)
	}
	if action == ActionSubmit && actor != p.CreatedBy {
		return "", fmt.Errorf("%w: submit by non-creator %s", ErrInvalidTransition, actor)
	}
	if systemAction(action) && actor != SystemActor {
		return "", fmt.Errorf("%w: %s requires the system actor", ErrInvalidTransition, action)
	}
	return next, nil
}
