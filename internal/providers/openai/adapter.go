package openai

import (
	"context"
	"net/http"

	"github.com/jordanhubbard/astrohub/internal/providers"
	"github.com/jordanhubbard/astrohub/internal/router"
)

// DefaultBaseURL is the public OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com"

// DefaultModels are tried in order; lightweight models first.
var DefaultModels = []string{"gpt-5-mini", "gpt-4.1-mini"}

// Adapter implements router.Sender for OpenAI.
type Adapter struct {
	id      string
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
}

// New creates a new OpenAI adapter. An empty apiKey yields an unconfigured
// adapter that the engine skips.
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

func (a *Adapter) Send(ctx context.Context, model string, req router.Request) (router.Completion, error) {
	payload := providers.ChatPayload(model, providers.ChatMessages(req.Messages), req.Params)

	body, err := providers.DoRequest(ctx, a.client, a.baseURL+"/v1/chat/completions", payload, providers.BearerHeaders(a.apiKey))
	if err != nil {
		return router.Completion{}, err
	}
	return router.Completion{Text: providers.DecodeChat(body)}, nil
}

func (a *Adapter) ClassifyError(err error) *router.ClassifiedError {
	return providers.Classify(err)
}
