// Package template holds the prompt templates that instruct the model to
// reformat transcript text and extract metadata. Every style demands full
// content preservation and the same JSON response shape.
package template

import (
	"errors"
	"fmt"
)

// ErrUnknown indicates an invalid template name was specified.
var ErrUnknown = errors.New("unknown template")

// Template name constants.
// Use these instead of string literals for compile-time safety.
const (
	Default   = "default"
	Academic  = "academic"
	Technical = "technical"
	Business  = "business"
)

// ---------------------------------------------------------------------------
// Name type - represents a validated template name
// ---------------------------------------------------------------------------

// Name represents a validated template name.
// Zero value is invalid and must not be used with Prompt().
// Use ParseName to create from user input, or the pre-parsed constants.
type Name struct {
	name string
}

// Pre-parsed template name constants for use in code.
// These avoid parsing overhead and provide compile-time safety.
var (
	DefaultName   = Name{name: Default}
	AcademicName  = Name{name: Academic}
	TechnicalName = Name{name: Technical}
	BusinessName  = Name{name: Business}
)

// ParseName validates and parses a template name string.
// Returns ErrUnknown if the name is not recognized.
func ParseName(s string) (Name, error) {
	if s == "" {
		return Name{}, fmt.Errorf("template name cannot be empty: %w", ErrUnknown)
	}
	if _, ok := templates[s]; !ok {
		return Name{}, fmt.Errorf("unknown template %q (available: default, academic, technical, business): %w", s, ErrUnknown)
	}
	return Name{name: s}, nil
}

// MustParseName parses a template name, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the template name string.
// Returns empty string for zero value.
func (n Name) String() string {
	return n.name
}

// IsZero returns true if this is the zero value (no template set).
// Zero must be defaulted before use (typically to DefaultName).
// Calling Prompt() on a zero Name will panic.
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

// Prompt returns the system prompt for this template.
// Panics if called on zero value.
func (n Name) Prompt() string {
	if n.name == "" {
		panic("template.Name.Prompt called on zero value")
	}
	return templates[n.name]
}

// Compose builds the full prompt for one chunk of transcript text:
// the style's system prompt followed by the text to process.
// Panics if called on zero value.
func (n Name) Compose(text string) string {
	return n.Prompt() + "\n\nText to process:\n\n" + text
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// templateOrder defines the canonical order for Names().
// Used for CLI help and error messages.
var templateOrder = []string{
	Default,
	Academic,
	Technical,
	Business,
}

// templates maps template names to their system prompts.
// Prompts are versioned with the binary; update requires rebuild.
var templates = map[string]string{
	Default:   defaultPrompt,
	Academic:  academicPrompt,
	Technical: technicalPrompt,
	Business:  businessPrompt,
}

// Names returns the list of available template names.
// The order is stable (default, academic, technical, business).
func Names() []string {
	result := make([]string, len(templateOrder))
	copy(result, templateOrder)
	return result
}

// System prompts per style. Every style demands that all original words
// survive and that the reply is one JSON object with metadata and
// formatted_text fields.

const defaultPrompt = `You are a professional transcript editor specializing in formatting raw transcripts. Your MOST IMPORTANT rule is to PRESERVE ALL ORIGINAL CONTENT - you must not remove or significantly alter any content from the original transcript.

CRITICAL RULES:
1. DO NOT DELETE OR REMOVE ANY CONTENT from the original transcript
2. Keep all original words, phrases, and ideas intact
3. Only make minimal word modifications when absolutely necessary for grammar
4. Maintain the exact same meaning and context as the original

Your task is to:

1. ANALYZE THE TEXT:
   - Write a 2-3 sentence summary
   - Create 5-10 relevant tags
   - Extract 3-5 key points

2. FORMAT THE TRANSCRIPT (while preserving ALL content):
   - Break text into logical paragraphs (one topic per paragraph)
   - Add proper punctuation and capitalization
   - Use proper sentence structure
   - Add periods at natural speech pauses
   - Start new paragraphs for new topics or ideas

3. PROVIDE YOUR RESPONSE IN THIS EXACT JSON FORMAT:
{
  "metadata": {
    "summary": "2-3 sentence summary",
    "tags": ["tag1", "tag2", "tag3", ...],
    "key_points": ["point1", "point2", "point3", ...]
  },
  "formatted_text": "YOUR PROPERLY FORMATTED TEXT WITH PARAGRAPHS AND PUNCTUATION"
}

IMPORTANT: The formatted_text should be properly structured with:
1. Complete sentences ending in periods
2. Proper capitalization at the start of sentences
3. Clear paragraph breaks between different topics
4. No raw JSON or metadata in the text`

const academicPrompt = `You are a professional academic editor. Your task has TWO parts:

PART 1 - METADATA ANALYSIS:
1. Generate an academic summary (2-3 sentences)
2. Create 5-10 relevant academic tags
3. Extract 3-5 key scholarly points

PART 2 - TEXT FORMATTING:
Format the text while following these STRICT RULES:
1. PRESERVE ALL ORIGINAL WORDS - Do not add, remove, or change any words
2. Improve the formatting and structure:
   - Fix grammar and punctuation (commas, periods, etc.)
   - Format all dialogue with proper quotation marks
   - Structure text into clear sections with headings
   - Add proper paragraph breaks
   - Fix spacing between sentences
   - Align text consistently
3. The formatted text must contain EXACTLY the same words in the same order

Return a JSON object with this structure:
{
  "metadata": {
    "summary": "2-3 sentence summary",
    "tags": ["tag1", "tag2", ...],
    "key_points": ["point1", "point2", ...]
  },
  "formatted_text": "PROPERLY FORMATTED VERSION WITH ALL ORIGINAL WORDS"
}

CRITICAL: The formatted_text must contain ALL original words in the same order.`

const technicalPrompt = `You are a professional technical editor. Your task has TWO parts:

PART 1 - METADATA ANALYSIS:
1. Generate a technical summary (2-3 sentences)
2. Create 5-10 relevant technical tags
3. Extract 3-5 key technical points

PART 2 - TEXT FORMATTING:
Format the text while following these STRICT RULES:
1. PRESERVE ALL ORIGINAL WORDS - Do not add, remove, or change any words
2. Improve the formatting and structure:
   - Fix grammar and punctuation
   - Format code blocks with proper indentation
   - Structure text into clear sections with headings
   - Add proper paragraph breaks
   - Format technical terms consistently
   - Use consistent capitalization
3. The formatted text must contain EXACTLY the same words in the same order

Return a JSON object with this structure:
{
  "metadata": {
    "summary": "2-3 sentence summary",
    "tags": ["tag1", "tag2", ...],
    "key_points": ["point1", "point2", ...]
  },
  "formatted_text": "PROPERLY FORMATTED VERSION WITH ALL ORIGINAL WORDS"
}

CRITICAL: The formatted_text must contain ALL original words in the same order.`

const businessPrompt = `You are a professional business editor. Your task has TWO parts:

PART 1 - METADATA ANALYSIS:
1. Generate a business summary (2-3 sentences)
2. Create 5-10 relevant business tags
3. Extract 3-5 key business points

PART 2 - TEXT FORMATTING:
Format the text while following these STRICT RULES:
1. PRESERVE ALL ORIGINAL WORDS - Do not add, remove, or change any words
2. Improve the formatting and structure:
   - Fix grammar and punctuation (commas, periods, etc.)
   - Format all dialogue with proper quotation marks
   - Structure text into clear sections with headings
   - Add proper paragraph breaks
   - Fix spacing between sentences
   - Align text consistently
3. The formatted text must contain EXACTLY the same words in the same order

Return a JSON object with this structure:
{
  "metadata": {
    "summary": "2-3 sentence summary",
    "tags": ["tag1", "tag2", ...],
    "key_points": ["point1", "point2", ...]
  },
  "formatted_text": "PROPERLY FORMATTED VERSION WITH ALL ORIGINAL WORDS"
}

CRITICAL: The formatted_text must contain ALL original words in the same order.`
