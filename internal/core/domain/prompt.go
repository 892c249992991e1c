package domain

import "strings"

// Placeholders substituted into answer prompt templates.
const (
	PromptContextPlaceholder = "{context}"
	PromptQueryPlaceholder   = "{query}"
)

// DefaultAnswerPrompt is the instruction template shared by generation backends.
const DefaultAnswerPrompt = `You are an advanced multimodal document analyst.
Below is a mix of text, structured tables and images retrieved from relevant documents.

CONTEXT:
{context}

USER QUERY:
{query}

INSTRUCTIONS:
1. Analyse the provided images and tables for relevant numbers or trends.
2. Cite specific images or tables explicitly (e.g. "According to the chart on page 4...").
3. If information is missing, say you do not have enough detail.
4. Use structured bullet points for data summaries.`

// BuildAnswerPrompt renders the request's template, or the default one when unset.
// Placeholders are replaced in a single pass, so context text that happens to
// contain "{query}" is left alone.
func BuildAnswerPrompt(req GenerationRequest) string {
	template := req.Template
	if strings.TrimSpace(template) == "" {
		template = DefaultAnswerPrompt
	}
	return strings.NewReplacer(
		PromptContextPlaceholder, req.TextContext,
		PromptQueryPlaceholder, req.Query,
	).Replace(template)
}
