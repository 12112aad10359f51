package aifill

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseOutline reads generation inputs from a markdown outline. The first
// heading is the topic and list items are key points. Top-level paragraphs
// become additional context, except "Audience:", "Industry:", "Tone:" and
// "CTA:" lines, which set the matching field.
//
//	# 5 productivity hacks
//	Audience: remote teams
//	- Time blocking
//	- Inbox zero
func ParseOutline(markdown string) Inputs {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var in Inputs
	var extra []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if in.Topic == "" {
				in.Topic = oneLine(plainText(node, src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if first := node.FirstChild(); first != nil {
				if p := oneLine(plainText(first, src)); p != "" {
					in.KeyPoints = append(in.KeyPoints, p)
				}
			}
		case *ast.Paragraph:
			if node.Parent() == nil || node.Parent().Kind() != ast.KindDocument {
				return ast.WalkSkipChildren, nil
			}
			for _, line := range strings.Split(plainText(node, src), "\n") {
				if line = strings.TrimSpace(line); line != "" && !in.setField(line) {
					extra = append(extra, line)
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	in.AdditionalContext = strings.Join(extra, "\n")
	return in
}

// setField applies a "Key: value" line and reports whether it was one.
func (in *Inputs) setField(line string) bool {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "audience":
		in.Audience = value
	case "industry":
		in.Industry = value
	case "tone":
		in.Tone = value
	case "cta":
		switch t := strings.ToLower(value); t {
		case CTAFollow, CTAComment, CTAShare, CTAVisit:
			in.CTAType = t
		default:
			in.CTAType, in.CustomCTA = CTACustom, value
		}
	default:
		return false
	}
	return true
}

// plainText collects the literal text under n. Line breaks become "\n".
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
