package agent

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nimbusflow/support-agent/internal/knowledge"
)

// systemPrompt builds the system instructions for a generation round.
func (a *Agent) systemPrompt(customerName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a helpful, friendly customer support agent for %s, a SaaS project-management platform.

Your role is to:
1. Answer questions about subscription plans, pricing, and feature availability
2. Help customers resolve common account and product issues
3. Explain company policies such as refunds, billing, and data handling
4. Be empathetic and professional in all interactions
5. Admit when you don't know something rather than making up information
6. Suggest contacting human support for complex issues you cannot resolve

IMPORTANT: When customers ask about plans, pricing, or features, use the
available tools to look up current data rather than answering from memory.

Guidelines:
- Keep responses concise but complete
- Use bullet points for plan features or comparison details
- Always be polite and helpful
- Provide accurate information based on tool results and the provided context only
- If a question is outside your knowledge, say so clearly
- For account-specific or billing disputes, direct the customer to %s
- When a customer introduces themselves, use their name naturally once, not repeatedly`,
		a.companyName, a.supportEmail)

	if customerName != "" {
		fmt.Fprintf(&b, "\n\nIMPORTANT: The customer's name is %s. Use their name naturally in your responses to personalize the conversation.", customerName)
	}
	return b.String()
}

// retrievalContext formats retrieved passages as a context block for the
// system prompt. Empty when nothing was retrieved.
func retrievalContext(results []knowledge.Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant company documentation for this question:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "\n[Source: %s | Relevance: %s]\n%s\n",
			r.Document.Source, knowledge.RelevanceBand(r.Score), r.Document.Content)
	}
	b.WriteString("\nUse this documentation when it answers the question. Cite facts from it rather than inventing details.")
	return b.String()
}

// defaultClarification asks the user to rephrase when a message is empty or
// incoherent and the checker offered no specific clarification.
const defaultClarification = "Could you please rephrase your question? I want to make sure I understand what you're looking for."

// fallbackApology is returned when generation fails entirely.
const fallbackApology = "I apologize, but I'm having trouble answering right now. Please try again in a moment, or contact our support team if the problem persists."

// greeting builds the canned warm welcome for greeting-only messages.
func (a *Agent) greeting(customerName string) string {
	if customerName != "" {
		return fmt.Sprintf("Hello %s! Welcome to %s support. I'm here to help with plans, pricing, features, and any product questions you might have. How can I assist you today?",
			customerName, a.companyName)
	}
	return fmt.Sprintf("Hello! Welcome to %s support. I'm here to help with plans, pricing, features, and any product questions you might have. How can I assist you today?",
		a.companyName)
}

// unanswerable builds the canned response for out-of-scope questions.
func (a *Agent) unanswerable() string {
	return fmt.Sprintf(`I apologize, but I'm not able to answer that question with the tools I have available.

I can help you with:
- Subscription plans, pricing, and plan comparisons
- Feature availability across plans
- Company policies such as refunds and billing
- Resolution steps for common product issues

For other questions or complex issues, please contact our support team at %s, and they'll be happy to assist you!`,
		a.supportEmail)
}

// personalize prefixes the customer's name onto a clarification in the
// conversational register the rest of the canned responses use.
func personalize(name, text string) string {
	if name == "" || text == "" {
		return text
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(name)) {
		return text
	}
	r := []rune(text)
	r[0] = unicode.ToLower(r[0])
	return name + ", " + string(r)
}
