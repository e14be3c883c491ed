// Package handler provides Telegram bot command, photo, text and
// callback handlers.
package handler

import (
	"strconv"
	"strings"
)

// ActionKind identifies a decoded inline-button action.
type ActionKind int

const (
	// ActionUnknown is returned for callback data that matches nothing.
	ActionUnknown ActionKind = iota
	ActionApprovePayment
	ActionRejectPayment
	ActionApproveWithdrawal
	ActionRejectWithdrawal
	ActionViewUser
	ActionMessageUser
	ActionAdminPendingPayments
	ActionAdminPendingWithdrawals
	ActionAdminStats
	ActionAdminExport
	ActionAdminMaintenance
	ActionAdminToggleFeature
)

// Callback data layouts. Review and user actions carry a numeric id
// suffix; the admin panel set is fixed strings except the feature
// toggle, which carries the feature name.
const (
	cbApprovePayment    = "approve_payment_"
	cbRejectPayment     = "reject_payment_"
	cbApproveWithdrawal = "approve_withdrawal_"
	cbRejectWithdrawal  = "reject_withdrawal_"
	cbViewUser          = "view_user_"
	cbMessageUser       = "message_user_"

	cbAdminPendingPayments    = "admin_pending_payments"
	cbAdminPendingWithdrawals = "admin_pending_withdrawals"
	cbAdminStats              = "admin_stats"
	cbAdminExport             = "admin_export"
	cbAdminMaintenance        = "admin_maintenance"
	cbAdminToggle             = "admin_toggle_"
)

// Action is one decoded callback. ID is set for the id-suffixed kinds,
// Feature for ActionAdminToggleFeature.
type Action struct {
	Kind    ActionKind
	ID      int64
	Feature string
}

// idActions maps id-suffixed callback prefixes to their kinds.
var idActions = []struct {
	prefix string
	kind   ActionKind
}{
	{cbApprovePayment, ActionApprovePayment},
	{cbRejectPayment, ActionRejectPayment},
	{cbApproveWithdrawal, ActionApproveWithdrawal},
	{cbRejectWithdrawal, ActionRejectWithdrawal},
	{cbViewUser, ActionViewUser},
	{cbMessageUser, ActionMessageUser},
}

// ParseAction decodes raw callback data into a typed action.
// Telebot prefixes callback data with \f; malformed ids decode to
// ActionUnknown rather than a zero-id action.
func ParseAction(data string) Action {
	data = strings.TrimPrefix(data, "\f")

	for _, a := range idActions {
		if !strings.HasPrefix(data, a.prefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(data, a.prefix), 10, 64)
		if err != nil || id <= 0 {
			return Action{Kind: ActionUnknown}
		}
		return Action{Kind: a.kind, ID: id}
	}

	switch data {
	case cbAdminPendingPayments:
		return Action{Kind: ActionAdminPendingPayments}
	case cbAdminPendingWithdrawals:
		return Action{Kind: ActionAdminPendingWithdrawals}
	case cbAdminStats:
		return Action{Kind: ActionAdminStats}
	case cbAdminExport:
		return Action{Kind: ActionAdminExport}
	case cbAdminMaintenance:
		return Action{Kind: ActionAdminMaintenance}
	}

	if feature := strings.TrimPrefix(data, cbAdminToggle); feature != data && feature != "" {
		return Action{Kind: ActionAdminToggleFeature, Feature: feature}
	}

	return Action{Kind: ActionUnknown}
}
