package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// PlainText returns the text of a page property, or "" when the property is
// missing or has a type with no text form. Title and rich text segments are
// concatenated.
func PlainText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok || prop == nil {
		return ""
	}
	var s string
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		s = joinRichText(p.Title)
	case notionapi.TitleProperty:
		s = joinRichText(p.Title)
	case *notionapi.RichTextProperty:
		s = joinRichText(p.RichText)
	case notionapi.RichTextProperty:
		s = joinRichText(p.RichText)
	case *notionapi.EmailProperty:
		s = p.Email
	case notionapi.EmailProperty:
		s = p.Email
	case *notionapi.PhoneNumberProperty:
		s = p.PhoneNumber
	case *notionapi.SelectProperty:
		s = p.Select.Name
	case *notionapi.URLProperty:
		s = p.URL
	}
	return strings.TrimSpace(s)
}

func joinRichText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}
