// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package translate

import (
	"context"
	"fmt"
	"strings"
)

// Completer is the minimal LM surface the form filler needs — satisfied by
// pkg/llm.Pool. Kept narrow here to avoid an import cycle between the
// translation layer and the LM pool.
type Completer interface {
	Complete(ctx context.Context, model string, system string, userPrompt string, maxTokens int) (string, error)
}

// modelLadder is the escalation sequence for form-fill attempts: small model
// twice, then medium. Never the large reasoning model — that is reserved
// for the primary agent loop.
var modelLadder = []string{"small", "small", "medium"}

// ModelForAttempt returns the model alias to use for a 0-indexed attempt,
// falling back to the ladder's last rung for any attempt beyond its length.
func ModelForAttempt(attempt int) string {
	if attempt < len(modelLadder) {
		return modelLadder[attempt]
	}
	return modelLadder[len(modelLadder)-1]
}

// FillResult is the outcome of a form-fill run.
type FillResult struct {
	ToolName  string
	FilledXML string
	Success   bool
	LastError string
}

// FormFiller extracts tool parameters from natural-language intent via a
// subordinate LM, for tools invoked outside a structured LM tool-call
// (command-palette use, CLI-driven composition).
type FormFiller struct {
	completer  Completer
	maxRetries int
}

// NewFormFiller builds a FormFiller bounded to maxRetries attempts.
func NewFormFiller(completer Completer, maxRetries int) *FormFiller {
	return &FormFiller{completer: completer, maxRetries: maxRetries}
}

// MaxRetries returns the configured retry bound.
func (f *FormFiller) MaxRetries() int { return f.maxRetries }

const formFillSystemPrompt = "You are a tool parameter extractor. Respond with ONLY filled XML. No explanation, no markdown fencing."

// Fill tries the model ladder up to MaxRetries times, feeding the previous
// error back into the retry prompt verbatim. It never invokes anything
// beyond the "medium" rung of the ladder.
func (f *FormFiller) Fill(ctx context.Context, intent, toolName, toolDescription, xmlTemplate, payloadTag string) FillResult {
	var lastErr string

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		model := ModelForAttempt(attempt)
		prompt := buildFillPrompt(intent, toolName, toolDescription, xmlTemplate, lastErr)

		text, err := f.completer.Complete(ctx, model, formFillSystemPrompt, prompt, 1024)
		if err != nil {
			lastErr = fmt.Sprintf("LM API error: %v", err)
			continue
		}

		cleaned := StripXMLFencing(text)
		if verr := ValidateXML(cleaned, payloadTag); verr != nil {
			lastErr = verr.Error()
			continue
		}

		return FillResult{ToolName: toolName, FilledXML: cleaned, Success: true}
	}

	return FillResult{ToolName: toolName, Success: false, LastError: lastErr}
}

func buildFillPrompt(intent, toolName, toolDescription, xmlTemplate, previousError string) string {
	var b strings.Builder
	if previousError != "" {
		fmt.Fprintf(&b, "Your previous attempt failed: %s\n\nPlease try again. ", previousError)
	}
	b.WriteString("Given the user's intent and a tool's XML template, produce a filled XML document that fulfills the intent. Use ONLY the tags shown in the template.\n\n")
	fmt.Fprintf(&b, "Intent: %q\n\nTool: %s\nDescription: %s\nXML Template:\n%s\n\n", intent, toolName, toolDescription, xmlTemplate)
	b.WriteString("Respond with ONLY the filled XML. No explanation.")
	return b.String()
}

// StripXMLFencing removes leading/trailing triple-backtick fences (with or
// without a language tag) from LM output before validation.
func StripXMLFencing(text string) string {
	trimmed := strings.TrimSpace(text)

	for _, prefix := range []string{"```xml", "```"} {
		if rest, ok := strings.CutPrefix(trimmed, prefix); ok {
			rest = strings.TrimSpace(rest)
			rest = strings.TrimSuffix(rest, "```")
			return strings.TrimSpace(rest)
		}
	}
	return trimmed
}

// ValidateXML checks that xml is non-empty, starts with '<', begins with the
// expected root open-tag, and ends with the matching close-tag.
func ValidateXML(xml, expectedRootTag string) error {
	trimmed := strings.TrimSpace(xml)

	if trimmed == "" {
		return fmt.Errorf("empty XML")
	}
	if !strings.HasPrefix(trimmed, "<") {
		return fmt.Errorf("not valid XML: doesn't start with '<'")
	}

	expectedOpen := "<" + expectedRootTag
	expectedClose := "</" + expectedRootTag + ">"

	if !strings.HasPrefix(trimmed, expectedOpen) {
		end := strings.IndexAny(trimmed, "> ")
		if end > 0 {
			return fmt.Errorf("expected root tag <%s>, got <%s>", expectedRootTag, trimmed[1:end])
		}
		return fmt.Errorf("expected root tag <%s>", expectedRootTag)
	}

	if !strings.HasSuffix(trimmed, expectedClose) {
		return fmt.Errorf("missing closing tag </%s>", expectedRootTag)
	}

	return nil
}
