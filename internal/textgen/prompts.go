package textgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

const classifyPrompt = `Classify this markdown document into exactly one of these categories:
- meeting (notes from meetings or calls)
- idea (brainstorms, concepts, proposals)
- reference (documentation, how-tos, factual info)
- journal (personal reflections, daily logs)
- project (project plans, specs, tracking)

Return ONLY the category name, nothing else.

Document:
%s`

const entitiesPrompt = `Extract named entities from this markdown document.
Return valid JSON only, no other text:
{
  "people": ["name1", "name2"],
  "organizations": ["org1", "org2"],
  "concepts": ["concept1", "concept2"],
  "locations": ["place1", "place2"]
}

Document:
%s`

const summarizePrompt = `Analyze these documents created or modified today and provide a concise summary.
Focus on: key themes, important updates, decisions made, and action items.
Write in second person ("You worked on...", "You decided...").
Keep it under 500 words.

Documents:
%s`

const weeklyReportPrompt = `Analyze this week's activity and provide:

1. Overview: 2-3 sentences summarizing the week
2. Key Themes: 3-5 major themes across documents
3. Recommended Follow-ups: 3-5 specific actions to take

Base your analysis on these documents and daily summaries:
%s

Format your response in markdown suitable for a weekly review.`

func buildClassifyPrompt(content string) string {
	return fmt.Sprintf(classifyPrompt, content)
}

func buildEntitiesPrompt(content string) string {
	return fmt.Sprintf(entitiesPrompt, content)
}

func buildSummarizePrompt(docs []SourceDocument) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("## %s\n%s", d.Path, d.Content)
	}
	return fmt.Sprintf(summarizePrompt, strings.Join(parts, "\n\n"))
}

func buildWeeklyReportPrompt(data WeekData) string {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		encoded = []byte("{}")
	}
	return fmt.Sprintf(weeklyReportPrompt, string(encoded))
}
