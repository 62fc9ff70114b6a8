package explore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// systemPrompt frames the model as the exploration policy. The output
// contract is strict: one JSON action, a JSON array of actions, or the
// literal FLOW_END.
const systemPrompt = `You are a web exploration agent. You are shown the interactive elements of the current page and must choose the next action to discover new application states.

Rules:
- Interact only with the elements listed. Never invent selectors.
- Give priority to elements inside the MODAL SECTION when one is shown; modals disappear if you navigate away.
- Choose actions that are likely to reveal new pages or states.
- Form flows may need several steps; you may return an ordered array of actions to run as one batch.
- Do not navigate by URL. Only interact through elements.
- If nothing useful remains, respond with exactly FLOW_END.

Respond with exactly one of:
1. A single action as JSON:
   {"action": "clickElement", "selector": "#submit", "visibleText": "Submit"}
   {"action": "typeText", "selector": "#email", "visibleText": "Email", "text": "user@example.com"}
   {"action": "selectOption", "selector": "#country", "visibleText": "Country", "value": "DE"}
2. An ordered array of such actions.
3. The literal text FLOW_END.

No commentary, no markdown.`

const historyWindow = 5

// buildUserPrompt assembles the per-iteration prompt: the page URL, the
// unexplored elements only, session hints, and a short tail of recent
// history.
func buildUserPrompt(s RunState, unexplored, hints []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current URL: %s\n\n", s.CurrentURL)

	sb.WriteString("Unexplored interactive elements:\n")
	if len(unexplored) == 0 {
		sb.WriteString("(none)\n")
	} else {
		for _, line := range unexplored {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	for _, h := range hints {
		sb.WriteString("\nNote: ")
		sb.WriteString(h)
		sb.WriteString("\n")
	}

	if len(s.ActionHistory) > 0 {
		sb.WriteString("\nRecent actions:\n")
		start := len(s.ActionHistory) - historyWindow
		if start < 0 {
			start = 0
		}
		for _, h := range s.ActionHistory[start:] {
			sb.WriteString("- ")
			sb.WriteString(h)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nChoose the next action.")
	return sb.String()
}

type rawAction struct {
	Action string `json:"action"`
	// Tool is an alias some models use for the verb field.
	Tool        string `json:"tool"`
	Selector    string `json:"selector"`
	VisibleText string `json:"visibleText"`
	Text        string `json:"text"`
	Value       string `json:"value"`
	URL         string `json:"url"`
}

func (r rawAction) toPending() (PendingAction, error) {
	verb := r.Action
	if verb == "" {
		verb = r.Tool
	}
	var kind ActionKind
	switch verb {
	case "clickElement", "click":
		kind = ActionClick
	case "typeText", "type":
		kind = ActionType
	case "selectOption", "select":
		kind = ActionSelect
	case "navigate":
		kind = ActionNavigate
	default:
		return PendingAction{}, fmt.Errorf("unknown action verb %q", verb)
	}
	if kind != ActionNavigate && r.Selector == "" {
		return PendingAction{}, fmt.Errorf("action %q has no selector", verb)
	}
	return PendingAction{
		Kind:        kind,
		Selector:    r.Selector,
		VisibleText: r.VisibleText,
		Text:        r.Text,
		Value:       r.Value,
		URL:         r.URL,
	}, nil
}

// ParseDecision interprets a model response. It tolerates markdown code
// fences and surrounding prose around the JSON. The boolean result reports a
// flow end; any response that yields neither actions nor FLOW_END is treated
// as a flow end rather than an error, since an incoherent model has nothing
// further to offer.
func ParseDecision(response string) (batch []PendingAction, flowEnd bool) {
	text := stripFences(strings.TrimSpace(response))
	if text == "" {
		return nil, true
	}
	if strings.Contains(strings.ToUpper(text), "FLOW_END") {
		return nil, true
	}

	if payload, ok := extractJSON(text, '[', ']'); ok {
		var raws []rawAction
		if err := json.Unmarshal([]byte(payload), &raws); err == nil {
			for _, r := range raws {
				a, err := r.toPending()
				if err != nil {
					return nil, true
				}
				batch = append(batch, a)
			}
			if len(batch) > 0 {
				return batch, false
			}
		}
	}
	if payload, ok := extractJSON(text, '{', '}'); ok {
		var r rawAction
		if err := json.Unmarshal([]byte(payload), &r); err == nil {
			a, err := r.toPending()
			if err != nil {
				return nil, true
			}
			return []PendingAction{a}, false
		}
	}
	return nil, true
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSON returns the outermost balanced region between open and close.
func extractJSON(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
