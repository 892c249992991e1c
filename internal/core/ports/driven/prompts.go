package driven

// Prompt names understood by PromptStore.
const (
	// PromptAnswer is the grounded answer template. It uses the
	// {context} and {query} placeholders.
	PromptAnswer = "answer"
)

// PromptStore loads user-customisable prompt templates.
type PromptStore interface {
	// Load returns the template for name, falling back to the built-in default.
	Load(name string) (string, error)
}
