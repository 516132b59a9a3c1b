package process

// Export internal functions for testing.
var (
	ParseChunkResponse = parseChunkResponse
	SanitizeJSON       = sanitizeJSON
	Merge              = merge
	TruncateAtWord     = truncateAtWord
	IsFatal            = isFatal
)
