package dialogue

// Reply is what the engine wants said back to the user. At most one of Buttons and
// List is meant to be set; the render package enforces channel limits.
type Reply struct {
	Text    string
	Buttons []Button
	List    *List
}

type Button struct {
	ID    string // Control id echoed back as the next turn's input
	Title string
}

type List struct {
	ButtonText string // Label of the button that opens the list
	Sections   []Section
}

type Section struct {
	Title string
	Rows  []Row
}

type Row struct {
	ID          string
	Title       string
	Description string
}

func textReply(text string) Reply {
	return Reply{Text: text}
}

// prefixed returns r with notice placed above its text.
func (r Reply) prefixed(notice string) Reply {
	if notice == "" {
		return r
	}
	if r.Text == "" {
		r.Text = notice
		return r
	}
	r.Text = notice + "\n\n" + r.Text
	return r
}
