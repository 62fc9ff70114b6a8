// Package dom holds the simplified-DOM model shared by the browser driver,
// the exploration engine and the graph planner: actionable elements, the
// canonical text rendering fed to the LLM, and the page fingerprint derived
// from it.
package dom

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxVisibleTextLen caps the visible text kept per element. Longer text adds
// no identity and bloats the prompt.
const MaxVisibleTextLen = 30

// ModalBanner separates modal-scoped elements in the canonical rendering.
// The exact string is fingerprint-significant; do not change it casually.
const ModalBanner = "=== MODAL SECTION ==="

// SimplifiedElement is one actionable element as reported by the browser
// driver. Selector priority is decided in-browser: #id, [name="…"],
// tag.firstClass, then a tag:nth-of-type fallback.
type SimplifiedElement struct {
	Tag         string `json:"tag"`
	VisibleText string `json:"visibleText"`
	Selector    string `json:"selector"`
	Type        string `json:"type,omitempty"`
	Role        string `json:"role,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
	InModal     bool   `json:"inModal,omitempty"`
}

// TruncateText trims and caps text at MaxVisibleTextLen runes.
func TruncateText(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > MaxVisibleTextLen {
		return string(runes[:MaxVisibleTextLen])
	}
	return text
}

// Normalize applies text truncation and the "(no text)" placeholder so that
// elements coming from any driver render identically.
func Normalize(elements []SimplifiedElement) []SimplifiedElement {
	out := make([]SimplifiedElement, len(elements))
	for i, el := range elements {
		el.VisibleText = TruncateText(el.VisibleText)
		if el.VisibleText == "" {
			el.VisibleText = "(no text)"
		}
		el.Tag = strings.ToUpper(strings.TrimSpace(el.Tag))
		out[i] = el
	}
	return out
}

// RefineSelectors resolves (selector, visibleText) collisions within a single
// snapshot by suffixing duplicates with an occurrence index. Lists routinely
// repeat the same selector shape for distinct rows, and the engine keys its
// per-URL bookkeeping on the (selector, text) pair. The :nth-match(n) suffix
// is not CSS; the browser driver decodes it back into an indexed
// querySelectorAll lookup.
func RefineSelectors(elements []SimplifiedElement) []SimplifiedElement {
	seen := make(map[string]int, len(elements))
	out := make([]SimplifiedElement, len(elements))
	for i, el := range elements {
		key := el.Selector + "|||" + el.VisibleText
		if n, dup := seen[key]; dup {
			seen[key] = n + 1
			el.Selector = fmt.Sprintf("%s:nth-match(%d)", el.Selector, n+1)
		} else {
			seen[key] = 1
		}
		out[i] = el
	}
	return out
}

// FilterIgnored drops elements whose selector matches any ignore-list entry.
// Entries match on exact selector or selector prefix (for class families such
// as cookie banners).
func FilterIgnored(elements []SimplifiedElement, ignore []string) []SimplifiedElement {
	if len(ignore) == 0 {
		return elements
	}
	out := make([]SimplifiedElement, 0, len(elements))
	for _, el := range elements {
		if matchesIgnore(el.Selector, ignore) {
			continue
		}
		out = append(out, el)
	}
	return out
}

func matchesIgnore(selector string, ignore []string) bool {
	for _, pattern := range ignore {
		if pattern == "" {
			continue
		}
		if selector == pattern || strings.HasPrefix(selector, pattern) {
			return true
		}
	}
	return false
}

// FormatElements renders the canonical text form: a header, modal elements
// first under the modal banner, one line per element. This exact rendering is
// what the fingerprint hashes and what the LLM sees, so it must be stable
// across runs for the same page.
func FormatElements(elements []SimplifiedElement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Actionable Elements (%d):\n", len(elements))

	var modal, regular []SimplifiedElement
	for _, el := range elements {
		if el.InModal {
			modal = append(modal, el)
		} else {
			regular = append(regular, el)
		}
	}

	idx := 0
	if len(modal) > 0 {
		b.WriteString(ModalBanner + "\n")
		for _, el := range modal {
			b.WriteString(formatLine(idx, el))
			idx++
		}
	}
	for _, el := range regular {
		b.WriteString(formatLine(idx, el))
		idx++
	}
	return b.String()
}

func formatLine(idx int, el SimplifiedElement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s | Text: %q", idx, el.Tag, el.VisibleText)
	if el.Type != "" {
		fmt.Fprintf(&b, " | Type: %s", el.Type)
	}
	if el.Role != "" {
		fmt.Fprintf(&b, " | Role: %s", el.Role)
	}
	fmt.Fprintf(&b, " | Selector: %s", el.Selector)
	if el.Disabled {
		b.WriteString(" | DISABLED")
	}
	b.WriteString("\n")
	return b.String()
}

// Fingerprint returns the first 16 hex chars of SHA-256 over the canonical
// serialization. Identical serializations yield identical fingerprints on
// every platform.
func Fingerprint(elements []SimplifiedElement) string {
	sum := sha256.Sum256([]byte(FormatElements(elements)))
	return hex.EncodeToString(sum[:])[:16]
}

// DefaultIgnoreList covers the overlays that pollute nearly every snapshot:
// cookie-consent banners, analytics opt-ins, chat widgets.
func DefaultIgnoreList() []string {
	return []string{
		"#onetrust-banner-sdk",
		"#onetrust-accept-btn-handler",
		"#cookie-banner",
		"#cookie-consent",
		".cookie-banner",
		".cookie-consent",
		".cc-window",
		".cc-btn",
		"#gdpr-banner",
		".gdpr-consent",
		"#intercom-container",
		".intercom-launcher",
		"#drift-widget",
		"#hubspot-messages-iframe-container",
		".optanon-alert-box-wrapper",
	}
}
