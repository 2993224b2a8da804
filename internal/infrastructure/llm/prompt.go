package llm

import "fmt"

const analysisPromptTemplate = `Analyze the following article and respond with a single YAML document.

Structure:
summary: two or three sentences describing what the article is about
tags:
  - name: lowercase topic tag
    score: relevance between 0.0 and 1.0
entities:
  - name: entity name
    type: one of company, product, person, framework
    score: relevance between 0.0 and 1.0
    context: one sentence on the entity's role in the article

Rules:
- tags name concrete topics, technologies, industries and applications
- include at least three tags
- do not invent entities that are not mentioned in the text
- output only the YAML document, no commentary

Title: %s

Content:
%s`

func buildAnalysisPrompt(title, content string) string {
	return fmt.Sprintf(analysisPromptTemplate, title, content)
}
