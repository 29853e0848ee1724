package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindlyhq/mindly/internal/dialogue"
	"github.com/mindlyhq/mindly/internal/whatsapp"
)

type sent struct {
	kind       string
	to         string
	body       string
	buttons    []whatsapp.Button
	buttonText string
	sections   []whatsapp.Section
}

type fakeGateway struct {
	calls []sent
	err   error
}

func (g *fakeGateway) SendText(_ context.Context, to, body string) error {
	g.calls = append(g.calls, sent{kind: "text", to: to, body: body})
	return g.err
}

func (g *fakeGateway) SendButtons(_ context.Context, to, body string, buttons []whatsapp.Button) error {
	g.calls = append(g.calls, sent{kind: "buttons", to: to, body: body, buttons: buttons})
	return g.err
}

func (g *fakeGateway) SendList(_ context.Context, to, body, buttonText string, sections []whatsapp.Section) error {
	g.calls = append(g.calls, sent{kind: "list", to: to, body: body, buttonText: buttonText, sections: sections})
	return g.err
}

func TestBuildText(t *testing.T) {
	p := Build(dialogue.Reply{Text: "hello"})
	assert.Equal(t, Payload{Kind: KindText, Text: "hello"}, p)
}

func TestBuildCapsLongText(t *testing.T) {
	p := Build(dialogue.Reply{Text: strings.Repeat("a", 5000)})
	assert.Equal(t, KindText, p.Kind)
	assert.Equal(t, whatsapp.MaxTextBody, utf8.RuneCountInString(p.Text))
	assert.True(t, strings.HasSuffix(p.Text, "…"))

	short := strings.Repeat("ü", whatsapp.MaxTextBody)
	assert.Equal(t, short, Build(dialogue.Reply{Text: short}).Text)
}

func TestBuildFillsBlankTitles(t *testing.T) {
	p := Build(dialogue.Reply{Text: "pick", Buttons: []dialogue.Button{{ID: "b", Title: "  "}}})
	require.Len(t, p.Buttons, 1)
	assert.Equal(t, defaultTitle, p.Buttons[0].Reply.Title)

	p = Build(dialogue.Reply{Text: "pick", List: &dialogue.List{
		ButtonText: " ",
		Sections:   []dialogue.Section{{Rows: []dialogue.Row{{ID: "r", Title: " "}, {ID: "s", Title: "Back"}}}},
	}})
	require.Equal(t, KindList, p.Kind)
	assert.Equal(t, defaultListButton, p.ButtonText)
	assert.Equal(t, defaultTitle, p.Sections[0].Rows[0].Title)
	assert.Equal(t, "Back", p.Sections[0].Rows[1].Title)
}

func TestBuildCapsButtonsAtThree(t *testing.T) {
	var bs []dialogue.Button
	for i := 1; i <= 5; i++ {
		bs = append(bs, dialogue.Button{ID: fmt.Sprintf("b%d", i), Title: fmt.Sprintf("Option %d", i)})
	}

	p := Build(dialogue.Reply{Text: "pick", Buttons: bs})
	assert.Equal(t, KindButtons, p.Kind)
	require.Len(t, p.Buttons, 3)
	assert.Equal(t, "b1", p.Buttons[0].Reply.ID)
	assert.Equal(t, "b3", p.Buttons[2].Reply.ID)
	assert.Equal(t, "reply", p.Buttons[0].Type)
}

func TestBuildTruncatesTitles(t *testing.T) {
	long := strings.Repeat("é", 40)
	p := Build(dialogue.Reply{Text: "pick", Buttons: []dialogue.Button{{ID: "x", Title: long}}})
	title := p.Buttons[0].Reply.Title
	assert.Equal(t, whatsapp.MaxButtonTitle, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "…"))

	p = Build(dialogue.Reply{Text: "pick", List: &dialogue.List{
		ButtonText: strings.Repeat("b", 30),
		Sections: []dialogue.Section{{
			Title: strings.Repeat("s", 30),
			Rows:  []dialogue.Row{{ID: "r", Title: strings.Repeat("t", 30), Description: strings.Repeat("d", 100)}},
		}},
	}})
	require.Equal(t, KindList, p.Kind)
	assert.Equal(t, whatsapp.MaxListButtonText, utf8.RuneCountInString(p.ButtonText))
	assert.Equal(t, whatsapp.MaxSectionTitle, utf8.RuneCountInString(p.Sections[0].Title))
	assert.Equal(t, whatsapp.MaxRowTitle, utf8.RuneCountInString(p.Sections[0].Rows[0].Title))
	assert.Equal(t, whatsapp.MaxRowDescription, utf8.RuneCountInString(p.Sections[0].Rows[0].Description))
	assert.Equal(t, "r", p.Sections[0].Rows[0].ID)
}

func TestBuildEmptyListDegradesToText(t *testing.T) {
	p := Build(dialogue.Reply{Text: "nothing here", List: &dialogue.List{
		ButtonText: "Open",
		Sections:   []dialogue.Section{{Title: "Empty"}, {Title: "Also empty", Rows: []dialogue.Row{}}},
	}})
	assert.Equal(t, Payload{Kind: KindText, Text: "nothing here"}, p)

	p = Build(dialogue.Reply{Text: "nothing", List: &dialogue.List{}})
	assert.Equal(t, KindText, p.Kind)
}

func TestBuildListDropsEmptySectionsAndCapsRows(t *testing.T) {
	rows := func(prefix string, n int) []dialogue.Row {
		var out []dialogue.Row
		for i := 0; i < n; i++ {
			out = append(out, dialogue.Row{ID: fmt.Sprintf("%s%d", prefix, i), Title: "row"})
		}
		return out
	}
	p := Build(dialogue.Reply{List: &dialogue.List{Sections: []dialogue.Section{
		{Title: "A", Rows: rows("a", 8)},
		{Title: "Empty"},
		{Title: "B", Rows: rows("b", 4)},
		{Title: "C", Rows: rows("c", 2)},
	}}})

	require.Equal(t, KindList, p.Kind)
	require.Len(t, p.Sections, 2)
	assert.Len(t, p.Sections[0].Rows, 8)
	assert.Len(t, p.Sections[1].Rows, 2)
	assert.Equal(t, "B", p.Sections[1].Title)
	assert.Equal(t, defaultListButton, p.ButtonText)
	assert.Equal(t, defaultBody, p.Text)
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}

	require.NoError(t, Deliver(ctx, gw, "5511", Build(dialogue.Reply{Text: "hi"})))
	require.NoError(t, Deliver(ctx, gw, "5511", Build(dialogue.Reply{Text: "pick", Buttons: []dialogue.Button{{ID: "a", Title: "A"}}})))
	require.NoError(t, Deliver(ctx, gw, "5511", Build(dialogue.Reply{Text: "choose", List: &dialogue.List{
		ButtonText: "Open",
		Sections:   []dialogue.Section{{Rows: []dialogue.Row{{ID: "r", Title: "R"}}}},
	}})))
	require.NoError(t, Deliver(ctx, gw, "5511", Build(dialogue.Reply{})))

	require.Len(t, gw.calls, 3)
	assert.Equal(t, "text", gw.calls[0].kind)
	assert.Equal(t, "buttons", gw.calls[1].kind)
	assert.Equal(t, "list", gw.calls[2].kind)
	assert.Equal(t, "Open", gw.calls[2].buttonText)
}

func TestDeliverReturnsGatewayError(t *testing.T) {
	gw := &fakeGateway{err: errors.New("status 500")}
	err := Deliver(context.Background(), gw, "5511", Payload{Kind: KindText, Text: "hi"})
	assert.EqualError(t, err, "status 500")
}

func TestClientIsAGateway(t *testing.T) {
	var _ Gateway = (*whatsapp.Client)(nil)
}
