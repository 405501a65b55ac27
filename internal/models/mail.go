package models

// MailAttachment: вложение письма, содержимое закодировано в base64.
type MailAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Base64      string `json:"base64"`
}

// MailMessage: письмо, передаваемое внешнему почтовому сервису через очередь.
type MailMessage struct {
	To         string          `json:"to"`
	Subject    string          `json:"subject"`
	Text       string          `json:"text,omitempty"`
	HTML       string          `json:"html,omitempty"`
	Attachment *MailAttachment `json:"attachment,omitempty"`
}
