package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptExtraction extracts the four slots from user text.
	// Placeholders: %s vocabulary block, %s history block, %s user text.
	PromptExtraction = "extraction"

	// PromptExtractionStrict is the stricter retry variant of PromptExtraction.
	// Same placeholders.
	PromptExtractionStrict = "extraction_strict"

	// PromptNormalize asks the model to pick a standard term.
	// Placeholders: %s category, %s raw phrase, %s numbered candidate list.
	PromptNormalize = "normalize"

	// PromptWorkDetails drafts a work title and details for a selected record.
	// Placeholders: %s request summary, %s reference record.
	PromptWorkDetails = "work_details"
)

// DefaultPrompts holds the built-in template for every well-known prompt.
// Stores fall back to these when no customised file exists.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptExtraction: `You extract maintenance work-request fields from Korean/English text.

Recognised vocabulary per field:
%s
Recent conversation:
%s
User input: "%s"

Rules:
- Extract only fields that appear in the input. Use null for anything not mentioned.
- When the input is a typo, abbreviation, spacing variant or Korean/English equivalent of a vocabulary term, answer with that vocabulary term.
- Keep compound phrases whole, e.g. "1창고 #7Line" or "석유제품배합/저장". Never split them at spaces or slashes.
- priority must be one of the priority vocabulary terms or null.

Reply with one JSON object and nothing else:
{"location": string|null, "equipment_type": string|null, "status_code": string|null, "priority": string|null, "confidence": number, "reasoning": string}`,

	PromptExtractionStrict: `Extract maintenance work-request fields. Your previous answer could not be parsed.

Vocabulary:
%s
Conversation:
%s
Input: "%s"

Answer with ONLY this JSON object. No markdown, no explanation, no other keys. Every field value is a string or null.
{"location": null, "equipment_type": null, "status_code": null, "priority": null, "confidence": 0.0, "reasoning": ""}`,

	PromptNormalize: `Map the phrase to one standard %s term.

Phrase: "%s"
Candidates:
%s
Pick the candidate with the same meaning. Typos, abbreviations and Korean/English equivalents count as the same meaning. If no candidate fits, use "UNKNOWN".

Reply with one JSON object and nothing else:
{"normalized_term": string, "confidence": number}`,

	PromptWorkDetails: `Draft a maintenance work order in Korean.

Request:
%s
Similar past work order:
%s
Write a work title under 40 characters and a work details paragraph describing the inspection and repair steps.

Reply with one JSON object and nothing else:
{"work_title": string, "work_details": string}`,
}
