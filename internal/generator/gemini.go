package generator

import (
	"context"
	"errors"
	"fmt"
	"teleaiposter/internal/domain"

	"google.golang.org/genai"
)

const ProviderGemini = "gemini"

type geminiBackend struct {
	client *genai.Client
}

func newGeminiBackend(ctx context.Context, apiKey string, opts Options) (Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: opts.BaseURL,
		},
	})
	if err != nil {
		return nil, err
	}

	return &geminiBackend{client: client}, nil
}

func (b *geminiBackend) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), nil)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &domain.ServiceError{
			Service: ProviderGemini,
			Message: fmt.Sprintf("prompt is blocked (reason = %s)", resp.PromptFeedback.BlockReason),
		}
	}

	return resp.Text(), nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return geminiServiceError(apiErr)
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return geminiServiceError(*apiErrPtr)
	}

	if domain.IsTransportFailure(err) {
		return domain.Transport(ProviderGemini, err)
	}

	return &domain.ServiceError{
		Service: ProviderGemini,
		Message: err.Error(),
	}
}

func geminiServiceError(apiErr genai.APIError) *domain.ServiceError {
	message := apiErr.Message
	if apiErr.Status != "" {
		message = apiErr.Status + ": " + message
	}

	return &domain.ServiceError{
		Service: ProviderGemini,
		Status:  apiErr.Code,
		Message: message,
	}
}
