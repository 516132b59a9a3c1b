package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrReplicateTokenMissing indicates REPLICATE_API_TOKEN environment variable is not set.
	ErrReplicateTokenMissing = errors.New("REPLICATE_API_TOKEN environment variable not set")

	// ErrOpenAIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
	ErrOpenAIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrFileNotFound indicates the specified input path does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedInput indicates an input file is not a transcript type.
	ErrUnsupportedInput = errors.New("unsupported input file type")

	// ErrNoInputFiles indicates a directory contained no transcript files.
	ErrNoInputFiles = errors.New("no transcript files found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrChunkBudgetTooLarge indicates the per-chunk token budget exceeds
	// the rate window's token budget, so no chunk could ever be admitted.
	ErrChunkBudgetTooLarge = errors.New("chunk budget exceeds rate window token budget")

	// ErrProviderModelMismatch indicates the selected model is not served
	// by the selected provider's API.
	ErrProviderModelMismatch = errors.New("model not served by provider")
)
