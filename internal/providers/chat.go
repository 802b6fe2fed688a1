package providers

import (
	"encoding/json"
	"log/slog"

	"github.com/jordanhubbard/astrohub/internal/router"
)

// ChatPayload builds the OpenAI-compatible chat completions body shared by
// OpenAI and Mistral. JSON output is always requested.
func ChatPayload(model string, messages any, p router.Params) map[string]any {
	return map[string]any{
		"model":           model,
		"temperature":     p.Temperature,
		"top_p":           p.TopP,
		"max_tokens":      p.MaxTokens,
		"messages":        messages,
		"response_format": map[string]string{"type": "json_object"},
	}
}

// ChatMessages converts router messages to the wire form.
func ChatMessages(msgs []router.Message) []map[string]string {
	out := make([]map[string]string, len(msgs))
	for i, m := range msgs {
		out[i] = map[string]string{"role": m.Role, "content": m.Content}
	}
	return out
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// DecodeChat extracts choices[0].message.content from a chat completions body.
// A 2xx reply is the provider's answer even when it carries no content: it
// decodes to "", which then fails report parsing like any other bad reply.
func DecodeChat(body []byte) string {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		WarnUndecodable("chat", body, err)
		return ""
	}
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// WarnUndecodable logs a 2xx body that is not the provider's JSON envelope.
func WarnUndecodable(api string, body []byte, err error) {
	slog.Warn("undecodable provider response",
		slog.String("api", api),
		slog.String("error", err.Error()),
		slog.String("body", truncate(string(body), maxErrorBody)),
	)
}

// BearerHeaders returns the Authorization header used by bearer-token providers.
func BearerHeaders(apiKey string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + apiKey}
}
