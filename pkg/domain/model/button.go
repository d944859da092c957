package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ActionIDPrefix marks Block Kit action IDs owned by this bot
const ActionIDPrefix = "babbell_"

var buttonValuePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// ButtonStyle is the Block Kit button style
type ButtonStyle string

const (
	ButtonStyleDefault ButtonStyle = ""
	ButtonStylePrimary ButtonStyle = "primary"
	ButtonStyleDanger  ButtonStyle = "danger"
)

// IsValid checks if the style is one Slack accepts
func (s ButtonStyle) IsValid() bool {
	switch s {
	case ButtonStyleDefault, ButtonStylePrimary, ButtonStyleDanger:
		return true
	default:
		return false
	}
}

// Button is one entry of the control panel. It is configuration and is not
// mutated after load.
type Button struct {
	Value       string
	Label       string
	Template    string
	IsBroadcast bool
	IncludeMenu bool
	IsOptOut    bool
	Style       ButtonStyle
}

// ActionID returns the Block Kit action ID for the button
func (x Button) ActionID() string {
	return ActionIDPrefix + x.Value
}

// Validate checks if the Button is valid
func (x Button) Validate() error {
	if !buttonValuePattern.MatchString(x.Value) {
		return goerr.New("button value must be uppercase alphanumeric with underscores", goerr.V("value", x.Value))
	}
	if strings.TrimSpace(x.Label) == "" {
		return goerr.New("button label is required", goerr.V("value", x.Value))
	}
	if x.IsBroadcast && x.IsOptOut {
		return goerr.New("button cannot be both broadcast and opt-out", goerr.V("value", x.Value))
	}
	if x.IsBroadcast && strings.TrimSpace(x.Template) == "" {
		return goerr.New("broadcast button requires a template", goerr.V("value", x.Value))
	}
	if !x.IsBroadcast && x.IncludeMenu {
		return goerr.New("only broadcast buttons can include the menu", goerr.V("value", x.Value))
	}
	if !x.Style.IsValid() {
		return goerr.New("invalid button style", goerr.V("value", x.Value), goerr.V("style", x.Style))
	}
	return nil
}

// ParseActionID extracts the button value from an action ID. It reports false
// for action IDs that do not belong to this bot.
func ParseActionID(actionID string) (string, bool) {
	value, ok := strings.CutPrefix(actionID, ActionIDPrefix)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ButtonSet is the ordered, read-only button table
type ButtonSet struct {
	buttons []Button
	index   map[string]int
}

// NewButtonSet validates buttons and builds the lookup table. Exactly one
// opt-out button is required.
func NewButtonSet(buttons []Button) (*ButtonSet, error) {
	set := &ButtonSet{
		buttons: make([]Button, len(buttons)),
		index:   make(map[string]int, len(buttons)),
	}
	copy(set.buttons, buttons)

	optOuts := 0
	for i, b := range set.buttons {
		if err := b.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid button", goerr.V("index", i))
		}
		if _, dup := set.index[b.Value]; dup {
			return nil, goerr.New("duplicate button value", goerr.V("value", b.Value))
		}
		set.index[b.Value] = i
		if b.IsOptOut {
			optOuts++
		}
	}
	if optOuts != 1 {
		return nil, goerr.New("exactly one opt-out button is required", goerr.V("count", optOuts))
	}

	return set, nil
}

// Lookup returns the button with the given value
func (s *ButtonSet) Lookup(value string) (Button, bool) {
	i, ok := s.index[value]
	if !ok {
		return Button{}, false
	}
	return s.buttons[i], true
}

// All returns every button in display order
func (s *ButtonSet) All() []Button {
	out := make([]Button, len(s.buttons))
	copy(out, s.buttons)
	return out
}

// Broadcasts returns broadcast buttons in display order
func (s *ButtonSet) Broadcasts() []Button {
	var out []Button
	for _, b := range s.buttons {
		if b.IsBroadcast {
			out = append(out, b)
		}
	}
	return out
}

// OptOut returns the opt-out button
func (s *ButtonSet) OptOut() Button {
	for _, b := range s.buttons {
		if b.IsOptOut {
			return b
		}
	}
	return Button{}
}
