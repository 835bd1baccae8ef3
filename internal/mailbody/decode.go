// Package mailbody extracts the human-readable text of a Gmail message
// payload. Real-world mail structure is inconsistent (single-part, flat
// multipart, multipart/alternative nested inside multipart/mixed), so
// decoding walks an ordered fallback chain and never fails: a decode miss
// must not block reconciliation of an otherwise matchable message.
package mailbody

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// minBodyLength is the threshold below which a decoded body is considered
// trivial and the next fallback is tried
const minBodyLength = 10

// Decode returns the best-effort text body of a message. Fallback order:
// direct single-part body, top-level text/plain, top-level text/html
// (stripped), one level of nested multipart recursion, then the
// provider-supplied snippet.
func Decode(payload *gmail.MessagePart, snippet string) string {
	if payload == nil {
		return snippet
	}

	// Single-part message with an inline body
	if body := decodePartData(payload.Body); nonTrivial(body) {
		if strings.HasPrefix(payload.MimeType, "text/html") {
			return cleanHTML(body)
		}
		return body
	}

	// Plain text wins over HTML regardless of part order
	if text := findPart(payload.Parts, "text/plain"); nonTrivial(text) {
		return text
	}
	if html := findPart(payload.Parts, "text/html"); html != "" {
		if stripped := cleanHTML(html); nonTrivial(stripped) {
			return stripped
		}
	}

	// One level of nested multipart containers
	for _, part := range payload.Parts {
		if part == nil || !strings.HasPrefix(part.MimeType, "multipart/") {
			continue
		}
		if text := findPart(part.Parts, "text/plain"); nonTrivial(text) {
			return text
		}
		if html := findPart(part.Parts, "text/html"); html != "" {
			if stripped := cleanHTML(html); nonTrivial(stripped) {
				return stripped
			}
		}
	}

	return snippet
}

func nonTrivial(s string) bool {
	return len(strings.TrimSpace(s)) > minBodyLength
}

// findPart returns the decoded body of the first part with the given MIME
// type prefix, or ""
func findPart(parts []*gmail.MessagePart, mimePrefix string) string {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if strings.HasPrefix(part.MimeType, mimePrefix) {
			if body := decodePartData(part.Body); body != "" {
				return body
			}
		}
	}
	return ""
}

// decodePartData decodes the base64url body data Gmail attaches to a part.
// Gmail uses the URL-safe alphabet, sometimes without padding.
func decodePartData(body *gmail.MessagePartBody) string {
	if body == nil || body.Data == "" {
		return ""
	}

	decoded, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(body.Data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// cleanHTML removes HTML tags (basic implementation)
func cleanHTML(html string) string {
	// Remove script and style tags with their contents
	html = removeTagsWithContent(html, "script")
	html = removeTagsWithContent(html, "style")

	// Replace common HTML entities
	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&amp;", "&")
	html = strings.ReplaceAll(html, "&quot;", "\"")
	html = strings.ReplaceAll(html, "&#39;", "'")
	html = strings.ReplaceAll(html, "<br>", "\n")
	html = strings.ReplaceAll(html, "<br/>", "\n")
	html = strings.ReplaceAll(html, "<br />", "\n")
	html = strings.ReplaceAll(html, "</p>", "\n\n")
	html = strings.ReplaceAll(html, "</div>", "\n")

	// Remove all remaining HTML tags
	var result strings.Builder
	inTag := false
	for _, char := range html {
		if char == '<' {
			inTag = true
			continue
		}
		if char == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(char)
		}
	}

	// Clean up whitespace
	text := strings.TrimSpace(result.String())
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}

	return text
}

// removeTagsWithContent removes HTML tags and their content
func removeTagsWithContent(html, tag string) string {
	openTag := "<" + tag
	closeTag := "</" + tag + ">"

	for {
		start := strings.Index(strings.ToLower(html), openTag)
		if start == -1 {
			break
		}

		end := strings.Index(strings.ToLower(html[start:]), closeTag)
		if end == -1 {
			break
		}
		end += start + len(closeTag)

		html = html[:start] + html[end:]
	}

	return html
}
