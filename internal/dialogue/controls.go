package dialogue

import "strings"

// control is a choice the user can make by tapping a button or row (id) or by typing
// one of its aliases. Matching is case-insensitive.
type control struct {
	id      string
	aliases []string
}

func ctl(id string, aliases ...string) control {
	return control{id: id, aliases: aliases}
}

func (c control) matches(text string) bool {
	if strings.EqualFold(text, c.id) {
		return true
	}
	for _, a := range c.aliases {
		if strings.EqualFold(text, a) {
			return true
		}
	}
	return false
}

func (c control) button(title string) Button {
	return Button{ID: c.id, Title: title}
}

func (c control) row(title, description string) Row {
	return Row{ID: c.id, Title: title, Description: description}
}

var resetKeywords = []string{"RESET", "START", "HI", "HELLO"}

func isReset(text string) bool {
	for _, k := range resetKeywords {
		if strings.EqualFold(text, k) {
			return true
		}
	}
	return false
}

var (
	roleStudent = ctl("role_student", "1", "student")
	roleDoctor  = ctl("role_doctor", "2", "doctor")
	roleOther   = ctl("role_other", "3", "other")

	menuSupport  = ctl("menu_support", "1", "support")
	menuBook     = ctl("menu_book", "2", "book")
	menuSessions = ctl("menu_sessions", "3", "sessions", "my sessions")
	supportExit  = ctl("support_menu", "menu")

	regConfirm = ctl("reg_confirm", "yes", "confirm")
	regRestart = ctl("reg_restart", "no", "restart")

	sessCancel = ctl("sess_cancel", "cancel")
	sessBack   = ctl("sess_back", "back", "menu")

	dashView = ctl("dash_view", "1", "view", "requests")

	listApproveAll      = ctl("list_approve_all", "approve all")
	listDeclineAll      = ctl("list_decline_all", "decline all")
	listSelectMultiple  = ctl("list_select", "select", "select multiple")
	listApproveSelected = ctl("list_approve_selected", "approve selected")
	listExitSelection   = ctl("list_exit_select", "exit", "exit selection")
	listBack            = ctl("list_back", "back", "menu")

	reqApprove = ctl("req_approve", "approve")
	reqDecline = ctl("req_decline", "decline")
	reqBack    = ctl("req_back", "back")
)

// Row id prefixes for per-record controls. Record ids are uuids, so no prefix collides.
const (
	sessionRowPrefix = "sess:"
	requestRowPrefix = "req:"
	toggleRowPrefix  = "tgl:"
)

// rowTarget returns the record id carried by a prefixed row id.
func rowTarget(text, prefix string) (string, bool) {
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(text, prefix)
	return id, id != ""
}
