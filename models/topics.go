package models

import (
	// Go Internal Packages
	"fmt"
	"strings"
)

// Entity family names, used in topics, metrics and failed-transition records.
const (
	EntityPayment           = "payment"
	EntityDeposit           = "deposit"
	EntityDevolution        = "devolution"
	EntityInfraction        = "infraction"
	EntityRefund            = "refund"
	EntityFraudDetection    = "fraud_detection"
	EntityWarningDeposit    = "warning_deposit"
	EntityWarningDevolution = "warning_devolution"
	EntityBankingTransfer   = "banking_transfer"
	EntityNotification      = "notification"
)

// Notification families arriving from the payment scheme gateways.
const (
	FamilyClaim                   = "claim"
	FamilyCredit                  = "credit"
	FamilyDebit                   = "debit"
	FamilyCompletion              = "completion"
	FamilyRegisterBankingTransfer = "register-banking-transfer"
	FamilyConfirmBankingTransfer  = "confirm-banking-transfer"
)

var NotifyFamilies = []string{
	FamilyClaim,
	FamilyCredit,
	FamilyDebit,
	FamilyCompletion,
	FamilyRegisterBankingTransfer,
	FamilyConfirmBankingTransfer,
}

// Transition command names.
const (
	OpRegister    = "register"
	OpSend        = "send"
	OpConfirm     = "confirm"
	OpComplete    = "complete"
	OpRevert      = "revert"
	OpCancel      = "cancel"
	OpCreate      = "create"
	OpReceive     = "receive"
	OpOpen        = "open"
	OpAcknowledge = "acknowledge"
	OpAnalyze     = "analyze"
	OpClose       = "close"
	OpApprove     = "approve"
	OpReject      = "reject"
)

func NotifyTopic(family string) string {
	return "notify." + family
}

func HubTopic(family string) string {
	return fmt.Sprintf("hub.notify.%s.gateway", family)
}

func HubDeadLetterTopic(family string) string {
	return fmt.Sprintf("hub.notify.%s.dead-letter", family)
}

// NotificationEventTopic is where a gateway notification reports its state,
// e.g. pix.notify.claim.ready.
func NotificationEventTopic(family string, s State) string {
	return fmt.Sprintf("pix.notify.%s.%s", family, strings.ToLower(string(s)))
}

// CommandTopic is the inbound topic driving one transition of an entity.
func CommandTopic(entity, op string) string {
	return fmt.Sprintf("pix.%s.%s", entity, op)
}

func DeadLetterTopic(entity string) string {
	return fmt.Sprintf("pix.%s.dead-letter", entity)
}

// EventTopic is the outbound topic for an entity reaching a state.
func EventTopic(entity string, s State) string {
	return fmt.Sprintf("pix.%s.event.%s", entity, strings.ToLower(string(s)))
}
