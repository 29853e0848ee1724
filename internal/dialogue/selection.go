package dialogue

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/mindlyhq/mindly/internal/models"
)

var integerToken = regexp.MustCompile(`\d+`)

// shorthandPositions extracts the integers typed in text such as "1,3 4", once each.
func shorthandPositions(text string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, tok := range integerToken.FindAllString(text, -1) {
		n, err := strconv.Atoi(tok)
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// toggleRequests flips each id that is part of the listed snapshot. Other ids are ignored.
func toggleRequests(data models.SessionData, ids ...string) models.SessionData {
	data.Selection = append([]string(nil), data.Selection...)
	for _, id := range ids {
		if listed(data, id) {
			data.Toggle(id)
		}
	}
	data.MultiSelect = true
	return data
}

// togglePositions resolves 1-based positions against the listed snapshot and toggles
// them. Out-of-range positions are ignored.
func togglePositions(data models.SessionData, positions []int) models.SessionData {
	ids := make([]string, 0, len(positions))
	for _, p := range positions {
		if p >= 1 && p <= len(data.Listed) {
			ids = append(ids, data.Listed[p-1])
		}
	}
	return toggleRequests(data, ids...)
}

func listed(data models.SessionData, id string) bool {
	for _, l := range data.Listed {
		if l == id {
			return true
		}
	}
	return false
}

// selectedInListOrder returns the selection ordered like the listed snapshot.
func selectedInListOrder(data models.SessionData) []string {
	var out []string
	for _, id := range data.Listed {
		if data.IsSelected(id) {
			out = append(out, id)
		}
	}
	return out
}

// listedRequest is a row of the doctor's list: the record plus its 1-based position in
// the snapshot.
type listedRequest struct {
	pos  int
	appt models.Appointment
}

// requestList renders the snapshot. It reads the selection markers straight from data so
// what is shown and what is selected cannot disagree.
func requestList(reqs []listedRequest, data models.SessionData) Reply {
	rows := make([]Row, 0, len(reqs)+3)
	for _, r := range reqs {
		title := fmt.Sprintf("%d. %s", r.pos, studentLabel(r.appt))
		id := requestRowPrefix + r.appt.ID
		if data.MultiSelect {
			mark := "☐"
			if data.IsSelected(r.appt.ID) {
				mark = "☑"
			}
			title = mark + " " + title
			id = toggleRowPrefix + r.appt.ID
		}
		rows = append(rows, Row{ID: id, Title: title, Description: requestSummary(r.appt)})
	}

	var actions []Row
	var text, button string
	if data.MultiSelect {
		n := len(selectedInListOrder(data))
		text = fmt.Sprintf("Selection mode: tap requests to tick them, or type their numbers (e.g. 1,3).\nSelected: %d", n)
		button = "Select requests"
		actions = []Row{
			listApproveSelected.row(fmt.Sprintf("Approve Selected (%d)", n), "Approve every ticked request"),
			listExitSelection.row("Exit Selection", "Back to the single-request view"),
		}
	} else {
		text = "Pending requests. Tap one to review it, or use a bulk action."
		button = "View requests"
		actions = []Row{
			listApproveAll.row("Approve All", "Approve every request shown"),
			listDeclineAll.row("Decline All", "Decline every request shown"),
			listSelectMultiple.row("Select Multiple", "Pick several requests to approve"),
		}
	}

	return Reply{
		Text: text,
		List: &List{
			ButtonText: button,
			Sections: []Section{
				{Title: "Requests", Rows: rows},
				{Title: "Actions", Rows: actions},
			},
		},
	}
}

func studentLabel(a models.Appointment) string {
	if a.StudentName != "" {
		return a.StudentName
	}
	return "Student"
}

func requestSummary(a models.Appointment) string {
	s := fmt.Sprintf("%s %s · %s", a.Date, a.Time, a.Concern)
	if a.Status != models.StatusPending {
		s = fmt.Sprintf("[%s] %s", a.Status, s)
	}
	return s
}
