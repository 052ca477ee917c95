package models

// Status labels are plain strings persisted as MySQL enums. Transitions are
// UI-driven; the server validates values and the few ordering rules the sales
// flow depends on, nothing more.

type LeadStage string

const (
	LeadStageNew       LeadStage = "New"
	LeadStageContacted LeadStage = "Contacted"
	LeadStageQuoted    LeadStage = "Quoted"
	LeadStageApproved  LeadStage = "Approved"
	LeadStageDeclined  LeadStage = "Declined"
)

func (s LeadStage) Valid() bool {
	switch s {
	case LeadStageNew, LeadStageContacted, LeadStageQuoted, LeadStageApproved, LeadStageDeclined:
		return true
	}
	return false
}

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "Draft"
	QuoteStatusSent     QuoteStatus = "Sent"
	QuoteStatusApproved QuoteStatus = "Approved"
	QuoteStatusRejected QuoteStatus = "Rejected"
	QuoteStatusExpired  QuoteStatus = "Expired"
)

func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusApproved, QuoteStatusRejected, QuoteStatusExpired:
		return true
	}
	return false
}

// allowed forward moves; a quote never leaves a terminal status
var quoteStatusTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft: {QuoteStatusSent},
	QuoteStatusSent:  {QuoteStatusApproved, QuoteStatusRejected, QuoteStatusExpired},
}

func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	for _, allowed := range quoteStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type JobStatus string

const (
	JobStatusScheduled      JobStatus = "Scheduled"
	JobStatusInProduction   JobStatus = "InProduction"
	JobStatusReadyToInstall JobStatus = "ReadyToInstall"
	JobStatusInstalled      JobStatus = "Installed"
	JobStatusCompleted      JobStatus = "Completed"
)

// production flow is strictly forward
var jobStatusOrder = map[JobStatus]int{
	JobStatusScheduled:      0,
	JobStatusInProduction:   1,
	JobStatusReadyToInstall: 2,
	JobStatusInstalled:      3,
	JobStatusCompleted:      4,
}

func (s JobStatus) Valid() bool {
	_, ok := jobStatusOrder[s]
	return ok
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	cur, ok := jobStatusOrder[s]
	if !ok {
		return false
	}
	n, ok := jobStatusOrder[next]
	if !ok {
		return false
	}
	return n > cur
}

type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "Unpaid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PartiallyPaid"
	InvoiceStatusPaid          InvoiceStatus = "Paid"
	InvoiceStatusOverdue       InvoiceStatus = "Overdue"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

type UserRole string

const (
	UserRoleAdmin UserRole = "Admin"
	UserRoleStaff UserRole = "Staff"
)
