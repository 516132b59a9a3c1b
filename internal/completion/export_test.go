package completion

// Export internal functions for testing.
var (
	WithReplicateHTTPClient = withReplicateHTTPClient
	WithChatCompleter       = withChatCompleter
	ClassifyReplicateError  = classifyReplicateError
	ClassifyOpenAIError     = classifyOpenAIError
	ParseReplicateError     = parseReplicateError
	DecodeReplicateOutput   = decodeReplicateOutput
	SystemPrompt            = systemPrompt
)
