package providers

import "context"

// TextGenerationProvider produces a completion for a system/user prompt
// pair. Implementations must not retry internally: the orchestrator owns
// the retry policy so that slot status reporting stays accurate. An
// unreachable backend, a malformed response, or an empty completion is
// an upstream error.
type TextGenerationProvider interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AttachmentGenerationProvider produces a completion for a prompt plus a
// set of image attachment references keyed by category. Every reference
// must be a well-formed, non-empty locator; a bad reference is a
// validation error raised before any outbound call.
type AttachmentGenerationProvider interface {
	GenerateWithAttachments(ctx context.Context, userPrompt string, attachments map[string]string) (string, error)
}
