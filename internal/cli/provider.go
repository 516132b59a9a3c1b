package cli

import (
	"errors"
	"fmt"
)

// Provider name constants.
// Use these instead of string literals for compile-time safety.
const (
	ProviderReplicate = "replicate"
	ProviderOpenAI    = "openai"
)

// Provider represents a validated completion API provider.
// Zero value is invalid and must not be used.
// Use ParseProvider to create from user input, or the pre-parsed constants.
type Provider struct {
	name string
}

// Compile-time interface compliance check.
var _ fmt.Stringer = Provider{}

// ErrInvalidProvider indicates an invalid provider name was specified.
var ErrInvalidProvider = errors.New("invalid provider")

// Pre-parsed provider constants for use in code.
// These avoid parsing overhead and provide compile-time safety.
var (
	ReplicateProvider = Provider{name: ProviderReplicate}
	OpenAIProvider    = Provider{name: ProviderOpenAI}
)

// validProviders contains the set of valid provider names.
var validProviders = map[string]bool{
	ProviderReplicate: true,
	ProviderOpenAI:    true,
}

// ParseProvider validates and parses a provider name string.
// Returns ErrInvalidProvider if the name is not recognized.
// Empty string returns an error; callers use OrDefault for defaulting.
func ParseProvider(s string) (Provider, error) {
	if s == "" {
		return Provider{}, fmt.Errorf("provider cannot be empty: %w", ErrInvalidProvider)
	}
	if !validProviders[s] {
		return Provider{}, fmt.Errorf("unknown provider %q (use 'replicate' or 'openai'): %w", s, ErrInvalidProvider)
	}
	return Provider{name: s}, nil
}

// MustParseProvider parses a provider name, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParseProvider(s string) Provider {
	p, err := ParseProvider(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the provider name string.
// Returns empty string for zero value.
func (p Provider) String() string {
	return p.name
}

// IsZero returns true if this is the zero value (no provider set).
// Zero must be defaulted before use (typically to ReplicateProvider).
func (p Provider) IsZero() bool {
	return p.name == ""
}

// IsReplicate returns true if this provider is Replicate.
func (p Provider) IsReplicate() bool {
	return p.name == ProviderReplicate
}

// IsOpenAI returns true if this provider is OpenAI.
func (p Provider) IsOpenAI() bool {
	return p.name == ProviderOpenAI
}

// OrDefault returns the provider, or ReplicateProvider if zero.
// Use this to apply the default provider consistently.
func (p Provider) OrDefault() Provider {
	if p.IsZero() {
		return ReplicateProvider
	}
	return p
}

// CredentialVar returns the environment variable that holds this
// provider's API credential.
func (p Provider) CredentialVar() string {
	if p.IsOpenAI() {
		return EnvOpenAIAPIKey
	}
	return EnvReplicateAPIToken
}
