package generation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/bizassess/internal/models"
)

// StrictJSONInstruction is appended to prompts after a failed attempt
const StrictJSONInstruction = `[STRICT OUTPUT RULES]
- Respond with exactly one JSON object and nothing else: no markdown, no code fences, no commentary.
- Use straight double quotes for every key and string value.
- Escape double quotes inside string values as \" and write line breaks as \n.
- Do not add keys that are not in the required format and do not omit required keys.
- Use null for unknown values; never invent numbers, sources or URLs.`

// CachedContextSystemInstruction primes a cached business plan context
const CachedContextSystemInstruction = `You are a senior analyst preparing a business capability assessment for a technology start-up.
The attached document is the company's business plan. Treat it as the primary evidence for every question that follows.
Quote or paraphrase the plan where it supports a judgement, state clearly when the plan is silent, and never invent facts about the company.`

const narrativeFormat = `Return a JSON object with this exact shape:
{"evaluation": "<assessment text; use \n for line breaks>"}`

const marketFormat = `Return a JSON object with this exact shape (null for anything the evidence does not support):
{
  "overseas_market": {"currency": "USD", "unit": "million", "years": [2025, 2026], "values_int": [100, 120], "method": "direct citation | CAGR based | insufficient evidence", "sources": [{"source_name": "", "issuing_organization": "", "publish_year": 2024, "key_basis": "", "link_or_id": ""}]},
  "korea_market": {"currency": "KRW", "unit": "hundred_million", "years": [], "values_int": [], "method": null, "sources": []},
  "competitors": [{"name": "", "country": "", "similarity_reason": "", "product_service_summary": "", "business_model": [""], "sources": [{"source_name": "", "publish_year": 2024, "link_or_id": ""}]}]
}
"years" and "values_int" must have the same length, at most 5 entries, integers only.
"link_or_id" must be a URI seen in the search results; if unsure write the source title instead.`

const ipcFormat = `Return a JSON object with this exact shape:
{"ipc_analysis": [{"ipc_code": "G06Q 50/16", "ipc_name": "", "linked_business_function": "", "justification": ""}]}`

// promptInput carries the values substituted into a prompt template
type promptInput struct {
	Subject string
	Title   string
	Task    string
	Context string
	Format  string
}

// BuildContextText renders retrieved blocks in retrieval order
func BuildContextText(blocks []models.ContextBlock, withSimilarity bool) string {
	if len(blocks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if withSimilarity {
			parts = append(parts, fmt.Sprintf("[%s | sim=%s]\n%s",
				block.Section, strconv.FormatFloat(block.Similarity, 'f', -1, 64), block.Content))
		} else {
			parts = append(parts, fmt.Sprintf("[%s]\n%s", block.Section, block.Content))
		}
	}
	return strings.Join(parts, "\n\n")
}

func contextPrompt(in promptInput) string {
	return fmt.Sprintf(`You are assessing the company "%s" for the report section "%s".

Use only the business plan excerpts below as evidence.

[Business plan excerpts]
%s

[Task]
%s

%s`, in.Subject, in.Title, orNone(in.Context), in.Task, in.Format)
}

func filePrompt(in promptInput) string {
	return fmt.Sprintf(`You are assessing the company "%s" for the report section "%s".

The attached file is the company's business plan. Use it as your evidence.

[Task]
%s

%s`, in.Subject, in.Title, in.Task, in.Format)
}

func fileContextPrompt(in promptInput) string {
	return fmt.Sprintf(`You are assessing the company "%s" for the report section "%s".

The business plan is available as an attached or cached document. The excerpts below were retrieved
as the most relevant passages; check them against the full document before relying on them.

[Business plan excerpts]
%s

[Task]
%s

%s`, in.Subject, in.Title, orNone(in.Context), in.Task, in.Format)
}

func searchPrompt(in promptInput) string {
	return fmt.Sprintf(`You are a market analyst researching the company "%s" for the report section "%s".

Use the web search tool for every figure and competitor. The business plan excerpts below only describe
what the company does; they are not evidence for market size.

[Business plan excerpts]
%s

[Task]
%s

%s`, in.Subject, in.Title, orNone(in.Context), in.Task, in.Format)
}

func ipcPrompt(in promptInput) string {
	return fmt.Sprintf(`You are a patent attorney classifying a business plan under the International Patent Classification.

Read the attached business plan. The excerpts below highlight its core technology and services.

[Business plan excerpts]
%s

[Task]
Identify the IPC subclasses or groups most closely related to the business items and services described.
For each code name the business function it covers and justify the link with wording from the plan.

%s`, orNone(in.Context), in.Format)
}

// withHints appends accumulated correction hints to a rendered prompt
func withHints(prompt string, attempt Attempt) string {
	if len(attempt.Hints) == 0 {
		return prompt
	}
	return prompt + "\n\n" + strings.Join(attempt.Hints, "\n\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
