package domain

import "fmt"

// Mode distinguishes debts between two registered users from self-kept records.
type Mode string

const (
	ModeMutual   Mode = "mutual"
	ModePersonal Mode = "personal"
)

// ParseMode validates a persisted or inbound mode value.
func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case ModeMutual, ModePersonal:
		return Mode(v), nil
	}
	return "", fmt.Errorf("unknown debt mode %q", v)
}

// Role is the side of the debt the creating user occupies.
type Role string

const (
	RoleLender   Role = "lender"
	RoleBorrower Role = "borrower"
)

// ParseRole validates a creator role value.
func ParseRole(v string) (Role, error) {
	switch Role(v) {
	case RoleLender, RoleBorrower:
		return Role(v), nil
	}
	return "", fmt.Errorf("unknown creator role %q", v)
}

// DebtStatus is the lifecycle state of a debt.
type DebtStatus string

const (
	DebtPending  DebtStatus = "pending"
	DebtActive   DebtStatus = "active"
	DebtSettled  DebtStatus = "settled"
	DebtRejected DebtStatus = "rejected"
)

// ParseDebtStatus validates a debt status value.
func ParseDebtStatus(v string) (DebtStatus, error) {
	switch DebtStatus(v) {
	case DebtPending, DebtActive, DebtSettled, DebtRejected:
		return DebtStatus(v), nil
	}
	return "", fmt.Errorf("unknown debt status %q", v)
}

// Terminal reports whether no further transition can leave the status.
func (s DebtStatus) Terminal() bool {
	switch s {
	case DebtSettled, DebtRejected:
		return true
	case DebtPending, DebtActive:
		return false
	}
	return false
}

// InstallmentType selects the repayment schedule shape.
type InstallmentType string

const (
	InstallmentLumpSum     InstallmentType = "lump_sum"
	InstallmentMonthly     InstallmentType = "monthly"
	InstallmentBiWeekly    InstallmentType = "bi_weekly"
	InstallmentQuarterly   InstallmentType = "quarterly"
	InstallmentYearly      InstallmentType = "yearly"
	InstallmentCustomSplit InstallmentType = "custom_split"
)

// ParseInstallmentType validates an installment type value.
func ParseInstallmentType(v string) (InstallmentType, error) {
	switch InstallmentType(v) {
	case InstallmentLumpSum, InstallmentMonthly, InstallmentBiWeekly,
		InstallmentQuarterly, InstallmentYearly, InstallmentCustomSplit:
		return InstallmentType(v), nil
	}
	return "", fmt.Errorf("unknown installment type %q", v)
}

// InstallmentStatus is derived from an installment's payments and due date.
type InstallmentStatus string

const (
	InstallmentUpcoming  InstallmentStatus = "upcoming"
	InstallmentSubmitted InstallmentStatus = "submitted"
	InstallmentApproved  InstallmentStatus = "approved"
	InstallmentRejected  InstallmentStatus = "rejected"
	InstallmentOverdue   InstallmentStatus = "overdue"
)

// ParseInstallmentStatus validates an installment status value.
func ParseInstallmentStatus(v string) (InstallmentStatus, error) {
	switch InstallmentStatus(v) {
	case InstallmentUpcoming, InstallmentSubmitted, InstallmentApproved,
		InstallmentRejected, InstallmentOverdue:
		return InstallmentStatus(v), nil
	}
	return "", fmt.Errorf("unknown installment status %q", v)
}

// PaymentStatus tracks a payment assertion through approval.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// ParsePaymentStatus validates a payment status value.
func ParsePaymentStatus(v string) (PaymentStatus, error) {
	switch PaymentStatus(v) {
	case PaymentPending, PaymentApproved, PaymentRejected:
		return PaymentStatus(v), nil
	}
	return "", fmt.Errorf("unknown payment status %q", v)
}

// WitnessStatus tracks a witness invitation.
type WitnessStatus string

const (
	WitnessInvited   WitnessStatus = "invited"
	WitnessConfirmed WitnessStatus = "confirmed"
	WitnessDeclined  WitnessStatus = "declined"
)

// ParseWitnessStatus validates a witness status value.
func ParseWitnessStatus(v string) (WitnessStatus, error) {
	switch WitnessStatus(v) {
	case WitnessInvited, WitnessConfirmed, WitnessDeclined:
		return WitnessStatus(v), nil
	}
	return "", fmt.Errorf("unknown witness status %q", v)
}

// NotificationType names the event a notification reports.
type NotificationType string

const (
	NotifyDebtRequest         NotificationType = "debt_request"
	NotifyDebtConfirmed       NotificationType = "debt_confirmed"
	NotifyDebtRejected        NotificationType = "debt_rejected"
	NotifyDebtSettled         NotificationType = "debt_settled"
	NotifyPaymentSubmitted    NotificationType = "payment_submitted"
	NotifyPaymentApproved     NotificationType = "payment_approved"
	NotifyPaymentRejected     NotificationType = "payment_rejected"
	NotifyWitnessInvited      NotificationType = "witness_invited"
	NotifyWitnessConfirmed    NotificationType = "witness_confirmed"
	NotifyWitnessDeclined     NotificationType = "witness_declined"
	NotifyUpgradeRequested    NotificationType = "upgrade_requested"
	NotifyUpgradeAccepted     NotificationType = "upgrade_accepted"
	NotifyUpgradeDeclined     NotificationType = "upgrade_declined"
	NotifyInstallmentOverdue  NotificationType = "installment_overdue"
	NotifyInstallmentReminder NotificationType = "installment_reminder"
)

// ParseNotificationType validates a notification type value.
func ParseNotificationType(v string) (NotificationType, error) {
	switch NotificationType(v) {
	case NotifyDebtRequest, NotifyDebtConfirmed, NotifyDebtRejected, NotifyDebtSettled,
		NotifyPaymentSubmitted, NotifyPaymentApproved, NotifyPaymentRejected,
		NotifyWitnessInvited, NotifyWitnessConfirmed, NotifyWitnessDeclined,
		NotifyUpgradeRequested, NotifyUpgradeAccepted, NotifyUpgradeDeclined,
		NotifyInstallmentOverdue, NotifyInstallmentReminder:
		return NotificationType(v), nil
	}
	return "", fmt.Errorf("unknown notification type %q", v)
}
