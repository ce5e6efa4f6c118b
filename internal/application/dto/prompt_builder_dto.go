package dto

// PromptResultDTO contains the built prompt and any warnings
type PromptResultDTO struct {
	System   string // fixed generation rules
	Content  string // schema, question and attempt history
	Warnings []string
}
