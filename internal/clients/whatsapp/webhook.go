package whatsapp

// WebhookPayload входящее уведомление WhatsApp Cloud API.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// InboundMessage текстовое сообщение от пользователя, номер в формате E.164.
type InboundMessage struct {
	From string
	Text string
}

// TextMessages извлекает текстовые сообщения; статусы доставки и медиа пропускаются.
func (p WebhookPayload) TextMessages() []InboundMessage {
	var out []InboundMessage
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			for _, m := range ch.Value.Messages {
				if m.Type != "text" || m.From == "" {
					continue
				}
				out = append(out, InboundMessage{From: "+" + m.From, Text: m.Text.Body})
			}
		}
	}
	return out
}
