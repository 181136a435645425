package jira

import "strings"

// adfDoc is a minimal Atlassian Document Format document.
type adfDoc struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Content []adfNode `json:"content"`
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

// toADF wraps text in a document with one paragraph per blank-line separated
// block. ADF rejects empty text nodes, so empty blocks become empty
// paragraphs.
func toADF(text string) adfDoc {
	doc := adfDoc{Type: "doc", Version: 1}
	for _, block := range strings.Split(text, "\n\n") {
		p := adfNode{Type: "paragraph"}
		if block != "" {
			p.Content = []adfNode{{Type: "text", Text: block}}
		}
		doc.Content = append(doc.Content, p)
	}
	return doc
}
