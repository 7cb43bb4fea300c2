package models

import (
	id "etatcivil/pkg/domain"
)

// Status is the single workflow state a declaration holds.
type Status string

const (
	StatusSubmittedToMairie           Status = "submitted_to_mairie"
	StatusPendingHospitalVerification Status = "pending_hospital_verification"
	StatusCertificateVerified         Status = "certificate_verified"
	StatusCertificateRejected         Status = "certificate_rejected"
	StatusValidated                   Status = "validated"
	StatusRejected                    Status = "rejected"
	StatusArchived                    Status = "archived"
)

var allStatuses = []Status{
	StatusSubmittedToMairie,
	StatusPendingHospitalVerification,
	StatusCertificateVerified,
	StatusCertificateRejected,
	StatusValidated,
	StatusRejected,
	StatusArchived,
}

func (s Status) IsValid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no action leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusArchived
}

func (s Status) String() string { return string(s) }

// Action names a workflow operation.
type Action string

const (
	ActionSendToHospital      Action = "send_to_hospital"
	ActionReject              Action = "reject"
	ActionValidateCertificate Action = "validate_certificate"
	ActionRejectCertificate   Action = "reject_certificate"
	ActionValidate            Action = "validate"
	ActionArchive             Action = "archive"
)

// Rule is one row of the transition table.
type Rule struct {
	From []Status
	To   Status
	Role id.Role
}

// Allows reports whether the rule accepts current as its source state.
func (r Rule) Allows(current Status) bool {
	for _, s := range r.From {
		if s == current {
			return true
		}
	}
	return false
}

// FromStrings lists the accepted source states for error reporting.
func (r Rule) FromStrings() []string {
	out := make([]string, len(r.From))
	for i, s := range r.From {
		out[i] = string(s)
	}
	return out
}

var rules = map[Action]Rule{
	ActionSendToHospital: {
		From: []Status{StatusSubmittedToMairie, StatusCertificateRejected},
		To:   StatusPendingHospitalVerification,
		Role: id.RoleMairie,
	},
	ActionReject: {
		From: []Status{StatusSubmittedToMairie, StatusCertificateVerified, StatusCertificateRejected},
		To:   StatusRejected,
		Role: id.RoleMairie,
	},
	ActionValidateCertificate: {
		From: []Status{StatusPendingHospitalVerification},
		To:   StatusCertificateVerified,
		Role: id.RoleHospital,
	},
	ActionRejectCertificate: {
		From: []Status{StatusPendingHospitalVerification},
		To:   StatusCertificateRejected,
		Role: id.RoleHospital,
	},
	ActionValidate: {
		From: []Status{StatusCertificateVerified},
		To:   StatusValidated,
		Role: id.RoleMairie,
	},
	ActionArchive: {
		From: []Status{StatusValidated},
		To:   StatusArchived,
		Role: id.RoleMairie,
	},
}

// RuleFor returns the transition rule of action.
func RuleFor(action Action) (Rule, bool) {
	r, ok := rules[action]
	return r, ok
}

// CanTransition reports whether some action moves from one status to the other.
func CanTransition(from, to Status) bool {
	for _, r := range rules {
		if r.To == to && r.Allows(from) {
			return true
		}
	}
	return false
}

// IsValidPath reports whether statuses, in order, start at submission and
// follow only edges of the transition table.
func IsValidPath(statuses []Status) bool {
	if len(statuses) == 0 || statuses[0] != StatusSubmittedToMairie {
		return false
	}
	for i := 1; i < len(statuses); i++ {
		if !CanTransition(statuses[i-1], statuses[i]) {
			return false
		}
	}
	return true
}

// EventType is the outbox event type for a committed action.
func EventType(action Action) string {
	return "declaration." + string(action)
}

// EventCreated is the outbox event type for a new declaration.
const EventCreated = "declaration.created"
