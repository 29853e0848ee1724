// Package render shapes engine replies into WhatsApp messages within the Cloud API limits.
package render

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/mindlyhq/mindly/internal/dialogue"
	"github.com/mindlyhq/mindly/internal/whatsapp"
)

type Kind int

const (
	KindText Kind = iota
	KindButtons
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindButtons:
		return "buttons"
	case KindList:
		return "list"
	default:
		return "text"
	}
}

const (
	defaultBody       = "Please choose an option."
	defaultListButton = "Options"
	defaultTitle      = "Option"
)

// Payload is exactly one outbound message shape.
type Payload struct {
	Kind       Kind
	Text       string
	Buttons    []whatsapp.Button
	ButtonText string
	Sections   []whatsapp.Section
}

// Gateway sends messages to the channel provider. *whatsapp.Client implements it.
type Gateway interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error
	SendList(ctx context.Context, to, body, buttonText string, sections []whatsapp.Section) error
}

// Build picks the message shape for r. Buttons beyond the channel maximum are dropped,
// titles are cut to their limits, and a list without rows becomes plain text.
func Build(r dialogue.Reply) Payload {
	switch {
	case len(r.Buttons) > 0:
		return buttons(r)
	case r.List != nil:
		if p, ok := list(r); ok {
			return p
		}
	}
	return Payload{Kind: KindText, Text: truncate(r.Text, whatsapp.MaxTextBody)}
}

func buttons(r dialogue.Reply) Payload {
	src := r.Buttons
	if len(src) > whatsapp.MaxButtons {
		src = src[:whatsapp.MaxButtons]
	}
	out := make([]whatsapp.Button, len(src))
	for i, b := range src {
		out[i] = whatsapp.ReplyButton(b.ID, title(b.Title, whatsapp.MaxButtonTitle))
	}
	return Payload{Kind: KindButtons, Text: interactiveBody(r.Text), Buttons: out}
}

func list(r dialogue.Reply) (Payload, bool) {
	budget := whatsapp.MaxListRows
	var sections []whatsapp.Section
	for _, s := range r.List.Sections {
		if budget == 0 {
			break
		}
		rows := s.Rows
		if len(rows) > budget {
			rows = rows[:budget]
		}
		if len(rows) == 0 {
			continue
		}
		budget -= len(rows)

		out := whatsapp.Section{
			Title: truncate(s.Title, whatsapp.MaxSectionTitle),
			Rows:  make([]whatsapp.Row, len(rows)),
		}
		for i, row := range rows {
			out.Rows[i] = whatsapp.Row{
				ID:          row.ID,
				Title:       title(row.Title, whatsapp.MaxRowTitle),
				Description: truncate(row.Description, whatsapp.MaxRowDescription),
			}
		}
		sections = append(sections, out)
	}
	if len(sections) == 0 {
		return Payload{}, false
	}

	button := r.List.ButtonText
	if strings.TrimSpace(button) == "" {
		button = defaultListButton
	}
	return Payload{
		Kind:       KindList,
		Text:       interactiveBody(r.Text),
		ButtonText: truncate(button, whatsapp.MaxListButtonText),
		Sections:   sections,
	}, true
}

// Deliver sends p to the recipient. An empty text payload is not sent.
func Deliver(ctx context.Context, gw Gateway, to string, p Payload) error {
	switch p.Kind {
	case KindButtons:
		return gw.SendButtons(ctx, to, p.Text, p.Buttons)
	case KindList:
		return gw.SendList(ctx, to, p.Text, p.ButtonText, p.Sections)
	}
	if p.Text == "" {
		return nil
	}
	return gw.SendText(ctx, to, p.Text)
}

// interactiveBody fills the mandatory body of an interactive message.
func interactiveBody(text string) string {
	if text == "" {
		return defaultBody
	}
	return truncate(text, whatsapp.MaxInteractiveBody)
}

// title is a button or row title. The provider rejects blank ones.
func title(s string, n int) string {
	if strings.TrimSpace(s) == "" {
		return defaultTitle
	}
	return truncate(s, n)
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
