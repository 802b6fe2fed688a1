package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jordanhubbard/astrohub/internal/providers"
	"github.com/jordanhubbard/astrohub/internal/router"
)

// DefaultBaseURL is the Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

var DefaultModels = []string{"gemini-2.0-flash"}

// Adapter implements router.Sender for Gemini generateContent.
type Adapter struct {
	id      string
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
}

func New(id, apiKey, baseURL string, opts ...providers.Option) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	o := providers.ApplyOptions(DefaultModels, opts)
	return &Adapter{
		id:      id,
		apiKey:  apiKey,
		baseURL: baseURL,
		models:  o.Models,
		client:  o.Client,
	}
}

func (a *Adapter) ID() string { return a.id }
func (a *Adapter) Models() []string { return a.models }
func (a *Adapter) Configured() bool { return a.apiKey != "" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (a *Adapter) Send(ctx context.Context, model string, req router.Request) (router.Completion, error) {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: Flatten(req.Messages)}}}},
		GenerationConfig: generationConfig{
			Temperature:      req.Params.Temperature,
			TopP:             req.Params.TopP,
			MaxOutputTokens:  req.Params.MaxTokens,
			ResponseMIMEType: "application/json",
		},
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, model)
	body, err := providers.DoRequest(ctx, a.client, url, payload, map[string]string{"x-goog-api-key": a.apiKey})
	if err != nil {
		return router.Completion{}, err
	}

	// A 2xx without candidates still ends the chain; the empty text is
	// reported as a parse failure.
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		providers.WarnUndecodable("gemini", body, err)
		return router.Completion{}, nil
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return router.Completion{}, nil
	}
	return router.Completion{Text: resp.Candidates[0].Content.Parts[0].Text}, nil
}

func (a *Adapter) ClassifyError(err error) *router.ClassifiedError {
	return providers.Classify(err)
}

// Flatten joins chat messages into a single prompt, one "[role]" block per
// non-empty message.
func Flatten(msgs []router.Message) string {
	chunks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		role := m.Role
		if role == "" {
			role = "user"
		}
		chunks = append(chunks, "["+role+"]\n"+m.Content)
	}
	return strings.Join(chunks, "\n\n")
}
