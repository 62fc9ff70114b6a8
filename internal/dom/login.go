package dom

import "strings"

// Login detection works on signals, not certainty: a page counting at least
// two of the signals below is treated as a login screen.
const loginSignalThreshold = 2

// DetectLogin reports whether the snapshot looks like a login screen.
// Signals: a password input, an element whose text or selector mentions a
// username, an autocomplete=username hint surfaced via Type, and a submit
// control labeled like a login action.
func DetectLogin(elements []SimplifiedElement) bool {
	signals := 0
	if hasPasswordField(elements) {
		signals++
	}
	if hasUsernameField(elements) {
		signals++
	}
	if hasLoginSubmit(elements) {
		signals++
	}
	return signals >= loginSignalThreshold
}

func hasPasswordField(elements []SimplifiedElement) bool {
	for _, el := range elements {
		if strings.EqualFold(el.Type, "password") {
			return true
		}
	}
	return false
}

func hasUsernameField(elements []SimplifiedElement) bool {
	for _, el := range elements {
		if !isTextInput(el) {
			continue
		}
		haystack := strings.ToLower(el.Selector + " " + el.VisibleText)
		if strings.Contains(haystack, "user") || strings.Contains(haystack, "email") ||
			strings.Contains(haystack, "login") {
			return true
		}
	}
	return false
}

func hasLoginSubmit(elements []SimplifiedElement) bool {
	for _, el := range elements {
		if !isSubmitControl(el) {
			continue
		}
		text := strings.ToLower(el.VisibleText)
		if strings.Contains(text, "log in") || strings.Contains(text, "login") ||
			strings.Contains(text, "sign in") || strings.Contains(text, "signin") ||
			strings.Contains(text, "submit") {
			return true
		}
	}
	return false
}

// LoginSelectors holds the three selectors a credential auto-fill batch
// needs, with the visible text that identifies each element.
type LoginSelectors struct {
	Username     string
	UsernameText string
	Password     string
	PasswordText string
	Submit       string
	SubmitText   string
}

// ParseLoginSelectors extracts the username, password and submit selectors
// from a login snapshot. Returns ok=false when any of the three is missing;
// the caller then falls through to the LLM instead of guessing.
func ParseLoginSelectors(elements []SimplifiedElement) (LoginSelectors, bool) {
	var sel LoginSelectors

	for _, el := range elements {
		if sel.Password == "" && strings.EqualFold(el.Type, "password") {
			sel.Password, sel.PasswordText = el.Selector, el.VisibleText
			continue
		}
		if sel.Username == "" && isTextInput(el) {
			haystack := strings.ToLower(el.Selector + " " + el.VisibleText)
			if strings.Contains(haystack, "user") || strings.Contains(haystack, "email") ||
				strings.Contains(haystack, "login") {
				sel.Username, sel.UsernameText = el.Selector, el.VisibleText
				continue
			}
		}
		if sel.Submit == "" && isSubmitControl(el) {
			sel.Submit, sel.SubmitText = el.Selector, el.VisibleText
		}
	}

	// Single text input next to a password field is the username by default.
	if sel.Username == "" && sel.Password != "" {
		for _, el := range elements {
			if isTextInput(el) && !strings.EqualFold(el.Type, "password") {
				sel.Username, sel.UsernameText = el.Selector, el.VisibleText
				break
			}
		}
	}

	ok := sel.Username != "" && sel.Password != "" && sel.Submit != ""
	return sel, ok
}

func isTextInput(el SimplifiedElement) bool {
	if el.Tag != "INPUT" && el.Tag != "TEXTAREA" {
		return false
	}
	switch strings.ToLower(el.Type) {
	case "", "text", "email", "tel":
		return true
	}
	return false
}

func isSubmitControl(el SimplifiedElement) bool {
	if el.Tag == "BUTTON" {
		return true
	}
	if el.Tag == "INPUT" && strings.EqualFold(el.Type, "submit") {
		return true
	}
	return strings.EqualFold(el.Role, "button")
}
