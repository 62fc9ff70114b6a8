package dom

import (
	"strings"
	"testing"
)

func TestTruncateText(t *testing.T) {
	if got := TruncateText("  hello  "); got != "hello" {
		t.Errorf("expected trimmed text, got %q", got)
	}
	long := strings.Repeat("a", 50)
	if got := TruncateText(long); len([]rune(got)) != MaxVisibleTextLen {
		t.Errorf("expected %d runes, got %d", MaxVisibleTextLen, len([]rune(got)))
	}
	// Truncation counts runes, not bytes.
	unicode := strings.Repeat("ü", 40)
	if got := TruncateText(unicode); len([]rune(got)) != MaxVisibleTextLen {
		t.Errorf("expected %d runes for multibyte text, got %d", MaxVisibleTextLen, len([]rune(got)))
	}
}

func TestNormalize(t *testing.T) {
	in := []SimplifiedElement{
		{Tag: "button", VisibleText: "   "},
		{Tag: "a", VisibleText: strings.Repeat("x", 40)},
	}
	out := Normalize(in)
	if out[0].VisibleText != "(no text)" {
		t.Errorf("expected placeholder, got %q", out[0].VisibleText)
	}
	if out[0].Tag != "BUTTON" {
		t.Errorf("expected uppercase tag, got %q", out[0].Tag)
	}
	if len(out[1].VisibleText) != MaxVisibleTextLen {
		t.Errorf("expected truncated text, got %d chars", len(out[1].VisibleText))
	}
	if in[0].VisibleText != "   " {
		t.Error("Normalize mutated its input")
	}
}

func TestRefineSelectorsDisambiguatesDuplicates(t *testing.T) {
	in := []SimplifiedElement{
		{Tag: "A", VisibleText: "Edit", Selector: "a.row-action"},
		{Tag: "A", VisibleText: "Edit", Selector: "a.row-action"},
		{Tag: "A", VisibleText: "Delete", Selector: "a.row-action"},
		{Tag: "A", VisibleText: "Edit", Selector: "a.row-action"},
	}
	out := RefineSelectors(in)
	if out[0].Selector != "a.row-action" {
		t.Errorf("first occurrence should keep its selector, got %q", out[0].Selector)
	}
	if out[1].Selector != "a.row-action:nth-match(2)" {
		t.Errorf("second occurrence not disambiguated: %q", out[1].Selector)
	}
	if out[2].Selector != "a.row-action" {
		t.Errorf("different text is not a collision: %q", out[2].Selector)
	}
	if out[3].Selector != "a.row-action:nth-match(3)" {
		t.Errorf("third occurrence not disambiguated: %q", out[3].Selector)
	}

	// Every (selector, text) pair must now be unique.
	seen := map[string]bool{}
	for _, el := range out {
		key := el.Selector + "|||" + el.VisibleText
		if seen[key] {
			t.Fatalf("duplicate pair after refinement: %s", key)
		}
		seen[key] = true
	}
}

func TestFilterIgnored(t *testing.T) {
	in := []SimplifiedElement{
		{Selector: "#onetrust-banner-sdk"},
		{Selector: ".cookie-banner-accept"},
		{Selector: "#main-nav"},
	}
	out := FilterIgnored(in, DefaultIgnoreList())
	if len(out) != 1 || out[0].Selector != "#main-nav" {
		t.Fatalf("expected only #main-nav to survive, got %+v", out)
	}
}

func TestFormatElementsModalFirst(t *testing.T) {
	in := []SimplifiedElement{
		{Tag: "A", VisibleText: "Home", Selector: "#home"},
		{Tag: "BUTTON", VisibleText: "Confirm", Selector: "#confirm", InModal: true},
	}
	got := FormatElements(in)
	if !strings.HasPrefix(got, "Actionable Elements (2):\n") {
		t.Errorf("missing header: %q", got)
	}
	bannerIdx := strings.Index(got, ModalBanner)
	if bannerIdx < 0 {
		t.Fatal("modal banner missing")
	}
	confirmIdx := strings.Index(got, "Confirm")
	homeIdx := strings.Index(got, "Home")
	if !(bannerIdx < confirmIdx && confirmIdx < homeIdx) {
		t.Errorf("modal element should be listed first:\n%s", got)
	}
	if !strings.Contains(got, `[0] BUTTON | Text: "Confirm" | Selector: #confirm`) {
		t.Errorf("unexpected line format:\n%s", got)
	}
}

func TestFormatElementsOptionalFields(t *testing.T) {
	in := []SimplifiedElement{
		{Tag: "INPUT", VisibleText: "Email", Selector: "#email", Type: "email", Disabled: true},
		{Tag: "DIV", VisibleText: "Menu", Selector: "div.menu", Role: "button"},
	}
	got := FormatElements(in)
	if !strings.Contains(got, "| Type: email |") {
		t.Errorf("type not rendered:\n%s", got)
	}
	if !strings.Contains(got, "| DISABLED") {
		t.Errorf("disabled flag not rendered:\n%s", got)
	}
	if !strings.Contains(got, "| Role: button |") {
		t.Errorf("role not rendered:\n%s", got)
	}
}

func TestFingerprintStability(t *testing.T) {
	a := []SimplifiedElement{
		{Tag: "A", VisibleText: "Home", Selector: "#home"},
		{Tag: "A", VisibleText: "About", Selector: "#about"},
	}
	b := []SimplifiedElement{
		{Tag: "A", VisibleText: "Home", Selector: "#home"},
		{Tag: "A", VisibleText: "About", Selector: "#about"},
	}
	fp1, fp2 := Fingerprint(a), Fingerprint(b)
	if fp1 != fp2 {
		t.Errorf("identical pages must fingerprint identically: %s vs %s", fp1, fp2)
	}
	if len(fp1) != 16 {
		t.Errorf("fingerprint must be 16 hex chars, got %d", len(fp1))
	}

	c := append([]SimplifiedElement{}, a...)
	c[1].VisibleText = "Contact"
	if Fingerprint(c) == fp1 {
		t.Error("changed text must change the fingerprint")
	}

	// Moving an element into a modal changes the rendering and the hash.
	d := append([]SimplifiedElement{}, a...)
	d[0].InModal = true
	if Fingerprint(d) == fp1 {
		t.Error("modal placement must change the fingerprint")
	}
}
