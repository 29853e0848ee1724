package whatsapp

// Cloud API limits for interactive messages.
const (
	MaxButtons         = 3
	MaxListRows        = 10
	MaxButtonTitle     = 20
	MaxListButtonText  = 20
	MaxSectionTitle    = 24
	MaxRowTitle        = 24
	MaxRowDescription  = 72
	MaxInteractiveBody = 1024
	MaxTextBody        = 4096
)

// Webhook envelope.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/components

type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Contacts         []Contact        `json:"contacts"`
	Messages         []Message        `json:"messages"`
	Statuses         []DeliveryStatus `json:"statuses"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type Message struct {
	ID          string            `json:"id"`
	From        string            `json:"from"`
	Timestamp   string            `json:"timestamp"`
	Type        string            `json:"type"`
	Text        *MessageText      `json:"text,omitempty"`
	Interactive *InteractiveReply `json:"interactive,omitempty"`
}

type MessageText struct {
	Body string `json:"body"`
}

// InteractiveReply is the user's tap on a button or list row. Only the id is routed on.
type InteractiveReply struct {
	Type        string     `json:"type"`
	ButtonReply *ReplyItem `json:"button_reply,omitempty"`
	ListReply   *ReplyItem `json:"list_reply,omitempty"`
}

type ReplyItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// DeliveryStatus callbacks (sent, delivered, read) arrive on the same webhook and are ignored.
type DeliveryStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// Outbound messages.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/messages

type SendMessageRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *SendText    `json:"text,omitempty"`
	Interactive      *Interactive `json:"interactive,omitempty"`
}

type SendText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type Interactive struct {
	Type   string            `json:"type"`
	Body   InteractiveBody   `json:"body"`
	Action InteractiveAction `json:"action"`
}

type InteractiveBody struct {
	Text string `json:"text"`
}

type InteractiveAction struct {
	Buttons  []Button  `json:"buttons,omitempty"`
	Button   string    `json:"button,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/messages/interactive-list-messages
type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Button struct {
	Type  string      `json:"type"`
	Reply ButtonReply `json:"reply"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ReplyButton builds a reply-type button.
func ReplyButton(id, title string) Button {
	return Button{Type: "reply", Reply: ButtonReply{ID: id, Title: title}}
}
