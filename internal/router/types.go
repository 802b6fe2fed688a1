package router

// Request is a provider-agnostic completion request. Provider adapters
// translate it into provider-specific API calls.
type Request struct {
	ID string `json:"id,omitempty"`

	// Chat-style messages; adapters that only accept a single prompt flatten them.
	Messages []Message `json:"messages"`

	Params Params `json:"params"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params are the sampling parameters sent with every attempt.
type Params struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultParams returns the sampling defaults used for report generation.
func DefaultParams() Params {
	return Params{Temperature: 0.6, TopP: 0.9, MaxTokens: 1400}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Temperature == 0 {
		p.Temperature = d.Temperature
	}
	if p.TopP == 0 {
		p.TopP = d.TopP
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = d.MaxTokens
	}
	return p
}

// Completion is the normalized result of a successful attempt.
type Completion struct {
	Text       string `json:"text"`
	ProviderID string `json:"provider"`
	Model      string `json:"model"`
}

// VisionRequest is a single multimodal prompt: text plus one image encoded
// as a data URL.
type VisionRequest struct {
	ID       string
	Prompt   string
	ImageURL string
	Params   Params
}
