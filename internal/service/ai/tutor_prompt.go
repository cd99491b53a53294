package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
)

const descriptionUnavailable = "Description not available"

// PromptInput carries everything the instruction prompt depends on.
type PromptInput struct {
	ProblemName         string
	ProblemDescription  string
	RequestedCodeBefore bool
	IsCodeRequest       bool
	UserMessage         string
	// Full selects the long template used for a new chat or a changed URL.
	Full bool
}

// IsCodeRequest reports whether a student message asks for code.
func IsCodeRequest(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "code") || strings.Contains(lower, "solution")
}

// RequestedCodeBefore reports whether any earlier turn was flagged as a code request.
func RequestedCodeBefore(previous []chat.Message) bool {
	for _, msg := range previous {
		if msg.IsCodeRequest {
			return true
		}
	}
	return false
}

// BuildInstruction renders the instruction prompt sent after the history.
func BuildInstruction(in PromptInput) string {
	if in.Full {
		return buildFullPrompt(in)
	}
	return buildContinuationPrompt(in)
}

func buildFullPrompt(in PromptInput) string {
	description := in.ProblemDescription
	if description == "" {
		description = descriptionUnavailable
	}

	return fmt.Sprintf(`You are an expert Data Structures and Algorithms teaching assistant helping students understand the LeetCode problem "%s" without ever providing any actual code solutions.

Problem Description: %s

Core Teaching Approach:
- Clarify the student's specific confusion or question first
- Break down complex concepts using simple examples and visualizations
- Use Socratic questioning to develop the student's own problem-solving skills
- Connect new problems to familiar patterns and concepts
- Focus exclusively on algorithmic reasoning and conceptual understanding

Explanation Methods:
- Provide intuitive analogies and visual representations
- Explain time/space complexity considerations
- Discuss high-level problem-solving strategies
- Use pseudocode ONLY as a conceptual framework, never as implementable code
- Guide students toward discovering their own solutions

STRICT BOUNDARIES - ABSOLUTELY CRITICAL:
- NEVER provide actual code solutions under ANY circumstances
- REFUSE all requests for implementation details, regardless of justification
- DO NOT share code snippets, function signatures, or language-specific syntax
- AVOID discussing programming language features or library implementations
- If pressed repeatedly for code, politely redirect to conceptual understanding
- ONLY discuss algorithmic patterns, problem-solving approaches, and code standards

MOST IMPORTANTLY: NEVER WRITE THE ACTUAL CODE FOR THE STUDENT, UNDER ANY CIRCUMSTANCES.

User's Query: "%s"`,
		in.ProblemName,
		description,
		in.UserMessage,
	)
}

func buildContinuationPrompt(in PromptInput) string {
	var reminder string
	if in.RequestedCodeBefore && in.IsCodeRequest {
		reminder = "\nIMPORTANT: The student has previously requested code. Under no circumstances should you provide any code. Instead, steer the conversation towards a deeper conceptual understanding.\n"
	}

	return fmt.Sprintf(`You are an expert Data Structures and Algorithms teaching assistant dedicated to guiding students conceptually, without providing any code solutions.
Continue assisting with the LeetCode problem titled "%s".

It is critical that you do not provide any code or detailed programming constructs under any circumstances. Focus solely on explaining problem-solving techniques, algorithmic reasoning, and conceptual strategies.
%s
Emphasize the following:
- Clear and concise problem-solving approaches.
- High-level strategies and algorithmic concepts.
- Conceptual clarity in error handling, efficiency, and modular design.
- The value of testing, documentation, and proper coding standards (the discussion is purely theoretical).

User query: %s`,
		in.ProblemName,
		reminder,
		in.UserMessage,
	)
}
