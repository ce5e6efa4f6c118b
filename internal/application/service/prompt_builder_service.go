package service

import (
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
)

// generationRules is sent as the system prompt on every attempt
const generationRules = `You are an expert SQL query generator. Generate a valid SQL query based on the user's natural language request.

Rules:
- Generate ONLY the SQL query, no explanations or text
- If the requested table doesn't exist in the schema, create a SELECT query anyway using the closest matching table
- Use proper SQLite syntax
- Be specific with column names from the schema
- Use appropriate WHERE, JOIN, GROUP BY, ORDER BY clauses
- Write exactly one read-only SELECT statement
- NEVER respond with explanatory text - ONLY SQL code`

// PromptBuilderService builds generation prompts from a request, the
// schema and every previous attempt
type PromptBuilderService struct{}

// NewPromptBuilderService creates a new prompt builder service
func NewPromptBuilderService() *PromptBuilderService {
	return &PromptBuilderService{}
}

// SystemPrompt returns the fixed generation rules
func (s *PromptBuilderService) SystemPrompt() string {
	return generationRules
}

// Build creates the prompt for the next attempt
func (s *PromptBuilderService) Build(req dto.GenerateRequest) *dto.PromptResultDTO {
	var (
		sb       strings.Builder
		warnings []string
	)

	sb.WriteString("Database Schema:\n")
	sb.WriteString(req.Schema.Describe())
	sb.WriteString("\n")
	if req.Schema.IsEmpty() {
		warnings = append(warnings, "schema is empty; the model has no tables to work from")
	}

	if history := s.BuildHistory(req); history != "" {
		sb.WriteString("\n")
		sb.WriteString(history)
	}

	sb.WriteString("\nRequest:\n")
	sb.WriteString(strings.TrimSpace(req.Request))
	sb.WriteString("\n")

	if len(req.HistoryStatements) != len(req.HistoryFailures) {
		warnings = append(warnings, fmt.Sprintf("history has %d statements but %d failures",
			len(req.HistoryStatements), len(req.HistoryFailures)))
	}

	return &dto.PromptResultDTO{
		System:   generationRules,
		Content:  sb.String(),
		Warnings: warnings,
	}
}

// BuildHistory renders every failed attempt, oldest first. It returns an
// empty string on the first attempt.
func (s *PromptBuilderService) BuildHistory(req dto.GenerateRequest) string {
	if len(req.HistoryFailures) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Previous attempts failed with these errors:\n")
	for i, f := range req.HistoryFailures {
		statement := ""
		if i < len(req.HistoryStatements) {
			statement = req.HistoryStatements[i]
		}
		if strings.TrimSpace(statement) == "" {
			statement = "(no statement produced)"
		}

		sb.WriteString(fmt.Sprintf("\nAttempt %d:\n", f.Attempt))
		sb.WriteString(fmt.Sprintf("SQL: %s\n", statement))
		sb.WriteString(fmt.Sprintf("Error (%s, %s): %s\n", f.Stage, f.Code, f.Message))
		if f.Subject != "" {
			sb.WriteString(fmt.Sprintf("Offending: %s\n", f.Subject))
		}
		if f.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("Hint: %s\n", f.Suggestion))
		}
	}
	sb.WriteString("\nPlease fix these issues in your new query.\n")
	return sb.String()
}
