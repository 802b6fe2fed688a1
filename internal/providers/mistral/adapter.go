package mistral

import (
	"context"
	"net/http"

	"github.com/jordanhubbard/astrohub/internal/providers"
	"github.com/jordanhubbard/astrohub/internal/router"
)

// DefaultBaseURL is the public Mistral API endpoint.
const DefaultBaseURL = "https://api.mistral.ai"

// DefaultModels are the text model candidates.
var DefaultModels = []string{"mistral-small-latest", "open-mixtral-8x7b"}

// DefaultVisionModel is the multimodal model used for palm photos.
const DefaultVisionModel = "pixtral-12b"

// Adapter implements router.Sender and router.VisionSender for Mistral.
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

func (a *Adapter) Send(ctx context.Context, model string, req router.Request) (router.Completion, error) {
	return a.post(ctx, providers.ChatPayload(model, providers.ChatMessages(req.Messages), req.Params))
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

// SendVision sends one user message carrying the prompt and an inline image.
func (a *Adapter) SendVision(ctx context.Context, model string, req router.VisionRequest) (router.Completion, error) {
	messages := []visionMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: req.ImageURL},
		},
	}}
	return a.post(ctx, providers.ChatPayload(model, messages, req.Params))
}

func (a *Adapter) post(ctx context.Context, payload map[string]any) (router.Completion, error) {
	body, err := providers.DoRequest(ctx, a.client, a.baseURL+"/v1/chat/completions", payload, providers.BearerHeaders(a.apiKey))
	if err != nil {
		return router.Completion{}, err
	}
	return router.Completion{Text: providers.DecodeChat(body)}, nil
}

func (a *Adapter) ClassifyError(err error) *router.ClassifiedError {
	return providers.Classify(err)
}
