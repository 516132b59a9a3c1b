package watch

// Test-only re-exports of unexported identifiers.
var IsTranscript = isTranscript
