package dom

import "testing"

func loginPage() []SimplifiedElement {
	return []SimplifiedElement{
		{Tag: "INPUT", VisibleText: "Username", Selector: "#username", Type: "text"},
		{Tag: "INPUT", VisibleText: "Password", Selector: "#password", Type: "password"},
		{Tag: "BUTTON", VisibleText: "Log in", Selector: "#submit"},
	}
}

func TestDetectLogin(t *testing.T) {
	if !DetectLogin(loginPage()) {
		t.Error("full login form not detected")
	}

	// Two signals suffice: password field plus login submit.
	twoSignals := []SimplifiedElement{
		{Tag: "INPUT", VisibleText: "(no text)", Selector: "input:nth-of-type(1)", Type: "password"},
		{Tag: "BUTTON", VisibleText: "Sign in", Selector: "button.primary"},
	}
	if !DetectLogin(twoSignals) {
		t.Error("password plus sign-in button should be enough")
	}

	// A lone search box is not a login form.
	notLogin := []SimplifiedElement{
		{Tag: "INPUT", VisibleText: "Search", Selector: "#search", Type: "text"},
		{Tag: "BUTTON", VisibleText: "Go", Selector: "#go"},
	}
	if DetectLogin(notLogin) {
		t.Error("search form misdetected as login")
	}

	// A newsletter email field alone is one signal, not two.
	oneSignal := []SimplifiedElement{
		{Tag: "INPUT", VisibleText: "Email", Selector: "#newsletter-email", Type: "email"},
		{Tag: "BUTTON", VisibleText: "Subscribe", Selector: "#subscribe"},
	}
	if DetectLogin(oneSignal) {
		t.Error("newsletter form misdetected as login")
	}
}

func TestParseLoginSelectors(t *testing.T) {
	sels, ok := ParseLoginSelectors(loginPage())
	if !ok {
		t.Fatal("expected selectors from a complete form")
	}
	if sels.Username != "#username" || sels.Password != "#password" || sels.Submit != "#submit" {
		t.Errorf("wrong selectors: %+v", sels)
	}
	if sels.UsernameText != "Username" || sels.SubmitText != "Log in" {
		t.Errorf("visible text not captured: %+v", sels)
	}
}

func TestParseLoginSelectorsFallbackUsername(t *testing.T) {
	// No username-ish label; the single non-password text input is taken.
	page := []SimplifiedElement{
		{Tag: "INPUT", VisibleText: "(no text)", Selector: "input:nth-of-type(1)", Type: "text"},
		{Tag: "INPUT", VisibleText: "(no text)", Selector: "input:nth-of-type(2)", Type: "password"},
		{Tag: "BUTTON", VisibleText: "Log in", Selector: "button:nth-of-type(1)"},
	}
	sels, ok := ParseLoginSelectors(page)
	if !ok {
		t.Fatal("fallback should have produced a full selector set")
	}
	if sels.Username != "input:nth-of-type(1)" {
		t.Errorf("fallback username wrong: %q", sels.Username)
	}
}

func TestParseLoginSelectorsIncomplete(t *testing.T) {
	page := []SimplifiedElement{
		{Tag: "INPUT", VisibleText: "Password", Selector: "#password", Type: "password"},
	}
	if _, ok := ParseLoginSelectors(page); ok {
		t.Error("missing submit and username must report not ok")
	}
}
