package llm

import (
	"fmt"
	"strings"
)

// GenerationContext is everything the pipeline gathered for one reply
type GenerationContext struct {
	AssistantName  string
	IntroMessage   string
	Description    string
	Guidelines     string
	ResponseLength string // short | normal | long
	BusinessName   string
	BusinessInfo   string
	Products       []ProductInfo
}

// ProductInfo is the catalog slice the prompt can reference
type ProductInfo struct {
	Name        string
	Description string
	Price       float64
	ImageURL    string
}

// MaxTokensFor maps the response-length mode to a generation cap. These are
// strength hints, not hard truncation.
func MaxTokensFor(responseLength string) int {
	switch responseLength {
	case "short":
		return 120
	case "long":
		return 700
	default:
		return 300
	}
}

// BuildSystemPrompt assembles the persona prompt from the generation context
func BuildSystemPrompt(gc *GenerationContext) string {
	var b strings.Builder

	name := gc.AssistantName
	if name == "" {
		name = "Assistant"
	}

	b.WriteString(fmt.Sprintf("You are %s, the AI assistant for %s.\n\n", name, gc.BusinessName))

	if gc.Description != "" {
		b.WriteString("**About you:**\n")
		b.WriteString(gc.Description + "\n\n")
	}

	if gc.BusinessInfo != "" {
		b.WriteString("**About the business:**\n")
		b.WriteString(gc.BusinessInfo + "\n\n")
	}

	if len(gc.Products) > 0 {
		b.WriteString("**Product catalog:**\n")
		for i, p := range gc.Products {
			b.WriteString(fmt.Sprintf("%d. %s - %.2f", i+1, p.Name, p.Price))
			if p.Description != "" {
				b.WriteString(" (" + p.Description + ")")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if gc.Guidelines != "" {
		b.WriteString("**Guidelines:**\n")
		b.WriteString(gc.Guidelines + "\n\n")
	}

	b.WriteString("**Instructions:**\n")
	b.WriteString("- Answer customer questions in a friendly, helpful tone\n")
	b.WriteString("- Only use information from the business details and catalog above\n")
	b.WriteString("- If a question is outside your knowledge, suggest contacting the business directly\n")
	b.WriteString("- Do not use markdown formatting\n")

	switch gc.ResponseLength {
	case "short":
		b.WriteString("- Keep replies to one or two short sentences\n")
	case "long":
		b.WriteString("- Give thorough, detailed answers when the question calls for it\n")
	default:
		b.WriteString("- Keep replies to two or three sentences\n")
	}

	return b.String()
}
