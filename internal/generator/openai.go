package generator

import (
	"context"
	"errors"
	"strings"
	"teleaiposter/internal/domain"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	ProviderOpenAI = "openai"

	defaultOpenAIModel = string(openai.ChatModelGPT5Mini2025_08_07)
)

// openAIBackend calls OpenAI's Responses API.
type openAIBackend struct {
	client openai.Client
}

func newOpenAIBackend(_ context.Context, apiKey string, opts Options) (Backend, error) {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}

	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &openAIBackend{
		client: openai.NewClient(reqOpts...),
	}, nil
}

func (b *openAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := b.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: openai.ChatModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Prompt),
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if resp.Status == "incomplete" {
		return "", &domain.ServiceError{
			Service: ProviderOpenAI,
			Message: "response is incomplete: " + string(resp.IncompleteDetails.Reason),
		}
	}

	return resp.OutputText(), nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		message := strings.TrimSpace(apiErr.Message)
		if message == "" {
			message = apiErr.Error()
		}

		return &domain.ServiceError{
			Service: ProviderOpenAI,
			Status:  apiErr.StatusCode,
			Message: message,
		}
	}

	if domain.IsTransportFailure(err) {
		return domain.Transport(ProviderOpenAI, err)
	}

	return &domain.ServiceError{
		Service: ProviderOpenAI,
		Message: err.Error(),
	}
}
