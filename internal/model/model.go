// Package model holds the registry of hosted completion models: identifiers,
// vendors, per-token pricing, and context limits. Cost and output estimation
// build on the registry so the CLI can price a run without calling any API.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknown indicates an invalid model name was specified.
var ErrUnknown = errors.New("unknown model")

// Vendor identifies who trained a model. Shown in listings and estimates.
type Vendor string

// Known vendors.
const (
	VendorIBM     Vendor = "IBM"
	VendorMeta    Vendor = "Meta"
	VendorMistral Vendor = "Mistral AI"
	VendorOpenAI  Vendor = "OpenAI"
)

// Spec describes one hosted model. Costs are USD per million tokens.
type Spec struct {
	Name            string // registry key, e.g. "llama-2-7b-chat"
	ID              string // provider-side identifier, e.g. "meta/llama-2-7b-chat"
	Vendor          Vendor
	InputCostPer1M  float64
	OutputCostPer1M float64
	MaxInputTokens  int
	MaxOutputTokens int
	Description     string
}

// ---------------------------------------------------------------------------
// Name type - represents a validated model name
// ---------------------------------------------------------------------------

// Name represents a validated model name.
// Zero value is invalid and must not be used with Spec().
// Use ParseName to create from user input, or the pre-parsed constants.
type Name struct {
	name string
}

// Pre-parsed model names for use in code.
var (
	// DefaultName is the model used when none is configured.
	DefaultName = Name{name: "llama-2-7b-chat"}
)

// ParseName validates and parses a model name string.
// Returns ErrUnknown if the name is not in the registry; the error
// message lists the valid names.
func ParseName(s string) (Name, error) {
	if s == "" {
		return Name{}, fmt.Errorf("model name cannot be empty: %w", ErrUnknown)
	}
	if _, ok := registry[s]; !ok {
		return Name{}, fmt.Errorf("unknown model %q (available: %s): %w",
			s, strings.Join(Names(), ", "), ErrUnknown)
	}
	return Name{name: s}, nil
}

// MustParseName parses a model name, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the model name string.
// Returns empty string for zero value.
func (n Name) String() string {
	return n.name
}

// IsZero returns true if this is the zero value (no model set).
// Zero must be defaulted before use (typically to DefaultName).
func (n Name) IsZero() bool {
	return n.name == ""
}

// OrDefault returns the name, or DefaultName if zero.
func (n Name) OrDefault() Name {
	if n.IsZero() {
		return DefaultName
	}
	return n
}

// Spec returns the registry entry for this model.
// Panics if called on zero value.
func (n Name) Spec() Spec {
	if n.name == "" {
		panic("model.Name.Spec called on zero value")
	}
	return registry[n.name]
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// registry maps model names to their specs. Pricing and limits are
// versioned with the binary; an update requires a rebuild.
var registry = map[string]Spec{
	// IBM Granite models
	"granite-20b-code-instruct-8k": {
		Name:            "granite-20b-code-instruct-8k",
		ID:              "ibm/granite-20b-code-instruct-8k",
		Vendor:          VendorIBM,
		InputCostPer1M:  0.100,
		OutputCostPer1M: 0.500,
		MaxInputTokens:  8192,
		MaxOutputTokens: 8192,
		Description:     "IBM Granite 20B code instruct model with 8K context",
	},
	"granite-3.0-2b-instruct": {
		Name:            "granite-3.0-2b-instruct",
		ID:              "ibm/granite-3.0-2b-instruct",
		Vendor:          VendorIBM,
		InputCostPer1M:  0.030,
		OutputCostPer1M: 0.250,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "IBM Granite 3.0 2B instruct model",
	},
	"granite-3.0-8b-instruct": {
		Name:            "granite-3.0-8b-instruct",
		ID:              "ibm/granite-3.0-8b-instruct",
		Vendor:          VendorIBM,
		InputCostPer1M:  0.050,
		OutputCostPer1M: 0.250,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "IBM Granite 3.0 8B instruct model",
	},

	// Meta Llama 2 models
	"llama-2-7b": {
		Name:            "llama-2-7b",
		ID:              "meta/llama-2-7b",
		Vendor:          VendorMeta,
		InputCostPer1M:  0.050,
		OutputCostPer1M: 0.250,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "Llama 2 7B base model",
	},
	"llama-2-7b-chat": {
		Name:            "llama-2-7b-chat",
		ID:              "meta/llama-2-7b-chat",
		Vendor:          VendorMeta,
		InputCostPer1M:  0.050,
		OutputCostPer1M: 0.250,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "Llama 2 7B chat model",
	},
	"llama-2-13b": {
		Name:            "llama-2-13b",
		ID:              "meta/llama-2-13b",
		Vendor:          VendorMeta,
		InputCostPer1M:  0.100,
		OutputCostPer1M: 0.500,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "Llama 2 13B base model",
	},
	"llama-2-70b": {
		Name:            "llama-2-70b",
		ID:              "meta/llama-2-70b",
		Vendor:          VendorMeta,
		InputCostPer1M:  0.650,
		OutputCostPer1M: 2.750,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "Llama 2 70B base model",
	},

	// Meta Llama 3 models
	"meta-llama-3-8b": {
		Name:            "meta-llama-3-8b",
		ID:              "meta/llama-3-8b",
		Vendor:          VendorMeta,
		InputCostPer1M:  0.050,
		OutputCostPer1M: 0.250,
		MaxInputTokens:  8192,
		MaxOutputTokens: 8192,
		Description:     "Llama 3 8B base model",
	},
	"meta-llama-3-70b": {
		Name:            "meta-llama-3-70b",
		ID:              "meta/llama-3-70b",
		Vendor:          VendorMeta,
		InputCostPer1M:  0.650,
		OutputCostPer1M: 2.750,
		MaxInputTokens:  8192,
		MaxOutputTokens: 8192,
		Description:     "Llama 3 70B base model",
	},
	"meta-llama-3.1-405b-instruct": {
		Name:            "meta-llama-3.1-405b-instruct",
		ID:              "meta/llama-3.1-405b-instruct",
		Vendor:          VendorMeta,
		InputCostPer1M:  9.500,
		OutputCostPer1M: 9.500,
		MaxInputTokens:  8192,
		MaxOutputTokens: 8192,
		Description:     "Llama 3.1 405B instruct model",
	},

	// Mistral AI models
	"mistral-7b-v0.1": {
		Name:            "mistral-7b-v0.1",
		ID:              "mistralai/mistral-7b-v0.1",
		Vendor:          VendorMistral,
		InputCostPer1M:  0.050,
		OutputCostPer1M: 0.250,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "Mistral 7B v0.1 base model",
	},
	"mistral-7b-instruct-v0.2": {
		Name:            "mistral-7b-instruct-v0.2",
		ID:              "mistralai/mistral-7b-instruct-v0.2",
		Vendor:          VendorMistral,
		InputCostPer1M:  0.050,
		OutputCostPer1M: 0.250,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "Mistral 7B v0.2 instruct model",
	},
	"mixtral-8x7b-instruct-v0.1": {
		Name:            "mixtral-8x7b-instruct-v0.1",
		ID:              "mistralai/mixtral-8x7b-instruct-v0.1",
		Vendor:          VendorMistral,
		InputCostPer1M:  0.300,
		OutputCostPer1M: 1.000,
		MaxInputTokens:  4096,
		MaxOutputTokens: 4096,
		Description:     "Mixtral 8x7B v0.1 instruct model",
	},

	// OpenAI chat models (served via the OpenAI API, not Replicate)
	"gpt-4o": {
		Name:            "gpt-4o",
		ID:              "gpt-4o",
		Vendor:          VendorOpenAI,
		InputCostPer1M:  2.500,
		OutputCostPer1M: 10.000,
		MaxInputTokens:  128000,
		MaxOutputTokens: 16384,
		Description:     "OpenAI GPT-4o flagship chat model",
	},
	"gpt-4o-mini": {
		Name:            "gpt-4o-mini",
		ID:              "gpt-4o-mini",
		Vendor:          VendorOpenAI,
		InputCostPer1M:  0.150,
		OutputCostPer1M: 0.600,
		MaxInputTokens:  128000,
		MaxOutputTokens: 16384,
		Description:     "OpenAI GPT-4o mini chat model",
	},
}

// List returns all registered models sorted by vendor then name.
// The order is stable and matches the listing layout.
func List() []Spec {
	specs := make([]Spec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool {
		if specs[i].Vendor != specs[j].Vendor {
			return specs[i].Vendor < specs[j].Vendor
		}
		return specs[i].Name < specs[j].Name
	})
	return specs
}

// Names returns all registered model names sorted alphabetically.
// Used for error messages and CLI completion.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
