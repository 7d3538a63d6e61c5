package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"mayachat/cmd/mayachat/ui"
	"mayachat/internal/properties"
	"mayachat/internal/protocol"
)

// widgetKind identifies which interactive widget is active below the
// transcript.
type widgetKind int

const (
	widgetNone widgetKind = iota
	widgetCategories
	widgetButtons
	widgetLeadForm
	widgetPreferenceForm
	widgetTextInput
	widgetNumberConfirm
	widgetPropertyCards
)

// widgetAction is the normalized outcome of a widget interaction, consumed
// by the model to dispatch the matching controller call.
type widgetAction struct {
	kind widgetActionKind

	category protocol.Category
	// lead form
	name, email, phone string
	// generic input
	input protocol.Input
	echo  string
	// property cards
	listing  protocol.Listing
	doQuote  bool
	showMore bool
}

type widgetActionKind int

const (
	actionNone widgetActionKind = iota
	actionSelectCategory
	actionSubmitLead
	actionSubmitInput
	actionGoToMenu
	actionEndChat
	actionPropertyAction
	actionShowMore
)

// Client-side lead validation, mirroring what the service enforces so bad
// submissions never leave the widget.
const (
	errInvalidName  = "Please enter a valid name (minimum 2 characters)."
	errInvalidEmail = "Please enter a valid email address (e.g., name@example.com)."
	errInvalidPhone = "Please enter a valid 10-digit phone number."
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	digitStripping = regexp.MustCompile(`[^0-9]`)
)

// validateLeadField checks one form field's value by its declared type.
// Optional fields left empty are valid; a typed value is always
// format-checked. Empty return means valid.
func validateLeadField(field protocol.FormField, value string) string {
	if strings.TrimSpace(value) == "" && !field.Required {
		return ""
	}
	switch field.Type {
	case "email":
		if !emailPattern.MatchString(strings.TrimSpace(value)) {
			return errInvalidEmail
		}
	case "tel":
		if len(digitStripping.ReplaceAllString(value, "")) != 10 {
			return errInvalidPhone
		}
	default:
		if len(strings.TrimSpace(value)) < 2 {
			return errInvalidName
		}
	}
	return ""
}

// widget is the active interactive element. Exactly one widget exists at a
// time: the one declared by the latest renderable descriptor.
type widget struct {
	kind      widgetKind
	component *protocol.UIComponent

	// categories / buttons
	cats    []protocol.Category
	options []protocol.Option
	cursor  int

	// lead form
	formFields []protocol.FormField
	inputs     []textinput.Model
	fieldIdx   int
	fieldErrs  map[int]string
	serverErrs []string

	// preference form
	prefFields  []protocol.PreferenceField
	prefIdx     int
	optionIdx   []int    // dropdown/buttons selection per field
	chips       [][]bool // multiselect toggles per field
	submitLabel string

	// text input / number confirmation
	text      textinput.Model
	optional  bool
	skipLabel string
	numField  protocol.NumberField

	// property cards
	browser      *properties.Browser
	cardIdx      int
	cardsLoading bool
	cardsFailed  bool
}

// newWidget builds the widget for a descriptor. A nil return means the
// descriptor is absent or non-renderable and the transcript stays passive.
func newWidget(component *protocol.UIComponent, catalog properties.Catalog, sessionID string, logger *zap.Logger) *widget {
	payload, err := component.Payload()
	if err != nil || payload == nil {
		return nil
	}

	w := &widget{component: component}
	switch data := payload.(type) {
	case *protocol.CategoryButtonsData:
		if len(data.Categories) == 0 {
			return nil
		}
		w.kind = widgetCategories
		w.cats = data.Categories

	case *protocol.ButtonsData:
		if len(data.Options) == 0 {
			return nil
		}
		w.kind = widgetButtons
		w.options = data.Options

	case *protocol.LeadFormData:
		w.kind = widgetLeadForm
		w.formFields = data.Fields
		w.fieldErrs = make(map[int]string)
		w.serverErrs = data.Errors
		for _, f := range data.Fields {
			ti := textinput.New()
			ti.Placeholder = f.Label
			ti.CharLimit = 128
			ti.Width = 40
			w.inputs = append(w.inputs, ti)
		}
		if len(w.inputs) > 0 {
			w.inputs[0].Focus()
		}

	case *protocol.PreferenceFormData:
		if len(data.Fields) == 0 {
			return nil
		}
		// A scalar field with no options has nothing to select; treat the
		// whole form as malformed.
		for _, f := range data.Fields {
			if len(f.Options) == 0 && f.Type != protocol.PreferenceMultiselect {
				return nil
			}
		}
		w.kind = widgetPreferenceForm
		w.prefFields = data.Fields
		w.submitLabel = data.SubmitLabel()
		w.optionIdx = make([]int, len(data.Fields))
		w.chips = make([][]bool, len(data.Fields))
		for i, f := range data.Fields {
			w.chips[i] = make([]bool, len(f.Options))
		}

	case *protocol.TextInputData:
		w.kind = widgetTextInput
		w.optional = data.Optional
		w.skipLabel = data.SkipLabel
		ti := textinput.New()
		ti.Placeholder = data.Placeholder
		ti.CharLimit = 512
		ti.Width = 60
		ti.Focus()
		w.text = ti

	case *protocol.NumberConfirmationData:
		field := data.Field()
		if field == nil {
			return nil
		}
		w.kind = widgetNumberConfirm
		w.numField = *field
		ti := textinput.New()
		ti.SetValue(field.Label)
		ti.CharLimit = 16
		ti.Width = 20
		ti.Focus()
		w.text = ti

	case *protocol.PropertyCardsData:
		browser, err := properties.NewBrowser(catalog, logger, sessionID, *data)
		if err != nil {
			return nil
		}
		w.kind = widgetPropertyCards
		w.browser = browser
		w.cardsLoading = true

	default:
		return nil
	}
	return w
}

// handleKey routes a key press to the active widget and returns the
// normalized action, if the press completed one.
func (w *widget) handleKey(msg tea.KeyMsg) (widgetAction, tea.Cmd) {
	switch w.kind {
	case widgetCategories:
		return w.handleListKey(msg, len(w.cats)), nil
	case widgetButtons:
		return w.handleListKey(msg, len(w.options)), nil
	case widgetLeadForm:
		return w.handleLeadFormKey(msg)
	case widgetPreferenceForm:
		return w.handlePreferenceKey(msg), nil
	case widgetTextInput:
		return w.handleTextKey(msg)
	case widgetNumberConfirm:
		return w.handleNumberKey(msg)
	case widgetPropertyCards:
		return w.handleCardsKey(msg), nil
	}
	return widgetAction{}, nil
}

func (w *widget) handleListKey(msg tea.KeyMsg, count int) widgetAction {
	switch msg.String() {
	case "up", "left", "shift+tab":
		w.cursor = (w.cursor - 1 + count) % count
	case "down", "right":
		w.cursor = (w.cursor + 1) % count
	case "enter":
		if w.kind == widgetCategories {
			return widgetAction{kind: actionSelectCategory, category: w.cats[w.cursor]}
		}
		opt := w.options[w.cursor]
		switch opt.Value {
		case "menu", "restart":
			return widgetAction{kind: actionGoToMenu}
		case "end":
			return widgetAction{kind: actionEndChat}
		}
		return widgetAction{
			kind:  actionSubmitInput,
			input: protocol.ButtonInput(opt.Value),
			echo:  opt.Label,
		}
	}
	return widgetAction{}
}

func (w *widget) handleLeadFormKey(msg tea.KeyMsg) (widgetAction, tea.Cmd) {
	switch msg.String() {
	case "up":
		w.moveLeadFocus(-1)
		return widgetAction{}, nil
	case "down", "tab":
		w.moveLeadFocus(1)
		return widgetAction{}, nil
	case "enter":
		if w.fieldIdx < len(w.inputs)-1 {
			w.moveLeadFocus(1)
			return widgetAction{}, nil
		}
		w.fieldErrs = make(map[int]string)
		for i, f := range w.formFields {
			if errMsg := validateLeadField(f, w.inputs[i].Value()); errMsg != "" {
				w.fieldErrs[i] = errMsg
			}
		}
		if len(w.fieldErrs) > 0 {
			// Jump focus to the first invalid field.
			for i := range w.inputs {
				if _, bad := w.fieldErrs[i]; bad {
					w.setLeadFocus(i)
					break
				}
			}
			return widgetAction{}, nil
		}
		name, email, phone := w.leadValues()
		return widgetAction{kind: actionSubmitLead, name: name, email: email, phone: phone}, nil
	}

	var cmd tea.Cmd
	w.inputs[w.fieldIdx], cmd = w.inputs[w.fieldIdx].Update(msg)
	return widgetAction{}, cmd
}

func (w *widget) moveLeadFocus(delta int) {
	w.setLeadFocus((w.fieldIdx + delta + len(w.inputs)) % len(w.inputs))
}

func (w *widget) setLeadFocus(idx int) {
	w.inputs[w.fieldIdx].Blur()
	w.fieldIdx = idx
	w.inputs[w.fieldIdx].Focus()
}

// leadValues maps the typed field values back to the lead triple by each
// field's declared type.
func (w *widget) leadValues() (name, email, phone string) {
	for i, f := range w.formFields {
		switch f.Type {
		case "email":
			email = w.inputs[i].Value()
		case "tel":
			phone = w.inputs[i].Value()
		default:
			name = w.inputs[i].Value()
		}
	}
	return name, email, phone
}

func (w *widget) handlePreferenceKey(msg tea.KeyMsg) widgetAction {
	field := w.prefFields[w.prefIdx]
	switch msg.String() {
	case "up", "shift+tab":
		if w.prefIdx > 0 {
			w.prefIdx--
		}
	case "down", "tab":
		if w.prefIdx < len(w.prefFields)-1 {
			w.prefIdx++
		}
	case "left":
		if n := len(field.Options); n > 0 && field.Type != protocol.PreferenceMultiselect {
			w.optionIdx[w.prefIdx] = (w.optionIdx[w.prefIdx] - 1 + n) % n
		}
	case "right":
		if n := len(field.Options); n > 0 && field.Type != protocol.PreferenceMultiselect {
			w.optionIdx[w.prefIdx] = (w.optionIdx[w.prefIdx] + 1) % n
		}
	case " ":
		if field.Type == protocol.PreferenceMultiselect {
			w.chips[w.prefIdx][w.optionIdx[w.prefIdx]] = !w.chips[w.prefIdx][w.optionIdx[w.prefIdx]]
		}
	case "h":
		if n := len(field.Options); field.Type == protocol.PreferenceMultiselect && n > 0 {
			w.optionIdx[w.prefIdx] = (w.optionIdx[w.prefIdx] - 1 + n) % n
		}
	case "l":
		if n := len(field.Options); field.Type == protocol.PreferenceMultiselect && n > 0 {
			w.optionIdx[w.prefIdx] = (w.optionIdx[w.prefIdx] + 1) % n
		}
	case "enter":
		if w.prefIdx < len(w.prefFields)-1 {
			w.prefIdx++
			return widgetAction{}
		}
		return w.preferenceSubmission()
	}
	return widgetAction{}
}

// preferenceSubmission assembles the form payload: one scalar per dropdown
// and button field, a list per multiselect field.
func (w *widget) preferenceSubmission() widgetAction {
	values := make(map[string]any, len(w.prefFields))
	var echoParts []string
	for i, f := range w.prefFields {
		if f.Type == protocol.PreferenceMultiselect {
			var picked []any
			var labels []string
			for j, on := range w.chips[i] {
				if on {
					picked = append(picked, f.Options[j].Value)
					labels = append(labels, f.Options[j].Label)
				}
			}
			if f.Required && len(picked) == 0 {
				w.prefIdx = i
				return widgetAction{}
			}
			values[f.Name] = picked
			echoParts = append(echoParts, strings.Join(labels, ", "))
			continue
		}
		if len(f.Options) == 0 {
			continue
		}
		opt := f.Options[w.optionIdx[i]]
		values[f.Name] = opt.Value
		echoParts = append(echoParts, opt.Label)
	}
	return widgetAction{
		kind:  actionSubmitInput,
		input: protocol.FormInput(values),
		echo:  strings.Join(echoParts, " · "),
	}
}

func (w *widget) handleTextKey(msg tea.KeyMsg) (widgetAction, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(w.text.Value())
		if text == "" {
			if !w.optional {
				return widgetAction{}, nil
			}
			text = skipSentinel
		}
		return widgetAction{
			kind:  actionSubmitInput,
			input: protocol.TextInput(text),
			echo:  text,
		}, nil
	case "ctrl+s":
		// Skip affordance for optional inputs. The payload is always the
		// fixed sentinel; skipLabel only captions the affordance.
		if w.optional {
			return widgetAction{
				kind:  actionSubmitInput,
				input: protocol.TextInput(skipSentinel),
				echo:  skipSentinel,
			}, nil
		}
		return widgetAction{}, nil
	}
	var cmd tea.Cmd
	w.text, cmd = w.text.Update(msg)
	return widgetAction{}, cmd
}

// skipSentinel is what an optional text input submits when skipped. The
// server keys on this exact value, so it never varies with the descriptor's
// skip_label.
const skipSentinel = "No special requests"

func (w *widget) skipCaption() string {
	if w.skipLabel != "" {
		return w.skipLabel
	}
	return "Skip"
}

func (w *widget) handleNumberKey(msg tea.KeyMsg) (widgetAction, tea.Cmd) {
	if msg.String() == "enter" {
		number := strings.TrimSpace(w.text.Value())
		if number == "" {
			return widgetAction{}, nil
		}
		return widgetAction{
			kind:  actionSubmitInput,
			input: protocol.NumberConfirmationInput(number),
			echo:  number,
		}, nil
	}
	var cmd tea.Cmd
	w.text, cmd = w.text.Update(msg)
	return widgetAction{}, cmd
}

func (w *widget) handleCardsKey(msg tea.KeyMsg) widgetAction {
	listings := w.browser.Listings()
	if w.cardsLoading || len(listings) == 0 {
		return widgetAction{}
	}
	switch msg.String() {
	case "up", "left":
		w.cardIdx = (w.cardIdx - 1 + len(listings)) % len(listings)
	case "down", "right":
		w.cardIdx = (w.cardIdx + 1) % len(listings)
	case "b", "enter":
		return widgetAction{kind: actionPropertyAction, listing: listings[w.cardIdx]}
	case "q":
		return widgetAction{kind: actionPropertyAction, listing: listings[w.cardIdx], doQuote: true}
	case "m":
		if w.browser.CanShowMore() {
			return widgetAction{kind: actionShowMore, showMore: true}
		}
	}
	return widgetAction{}
}

// =============================================================================
// RENDERING
// =============================================================================

// view renders the widget pane.
func (w *widget) view(styles ui.Styles) string {
	var b strings.Builder
	switch w.kind {
	case widgetCategories:
		for i, c := range w.cats {
			label := fmt.Sprintf("%s %s", c.Emoji, c.Label)
			if i == w.cursor {
				b.WriteString(styles.OptionSelected.Render(label))
			} else {
				b.WriteString(styles.Option.Render(label))
			}
			b.WriteString("\n")
		}

	case widgetButtons:
		for i, o := range w.options {
			if i == w.cursor {
				b.WriteString(styles.OptionSelected.Render(o.Label))
			} else {
				b.WriteString(styles.Option.Render(o.Label))
			}
			b.WriteString("\n")
		}

	case widgetLeadForm:
		for _, msg := range w.serverErrs {
			b.WriteString(styles.FieldError.Render(msg) + "\n")
		}
		for i, f := range w.formFields {
			b.WriteString(styles.FieldLabel.Render(f.Label) + "\n")
			b.WriteString(w.inputs[i].View() + "\n")
			if msg, bad := w.fieldErrs[i]; bad {
				b.WriteString(styles.FieldError.Render(msg) + "\n")
			}
		}
		b.WriteString(styles.Muted.Render("enter: next field / submit"))

	case widgetPreferenceForm:
		for i, f := range w.prefFields {
			label := f.Label
			if i == w.prefIdx {
				label = "▸ " + label
			}
			b.WriteString(styles.FieldLabel.Render(label) + "\n")
			if f.Type == protocol.PreferenceMultiselect {
				for j, o := range f.Options {
					style := styles.ChipOff
					if w.chips[i][j] {
						style = styles.ChipOn
					}
					if i == w.prefIdx && j == w.optionIdx[i] {
						style = style.Underline(true)
					}
					b.WriteString(style.Render(o.Label) + " ")
				}
				b.WriteString("\n")
			} else {
				b.WriteString(styles.OptionSelected.Render(f.Options[w.optionIdx[i]].Label))
				b.WriteString(styles.Muted.Render(" ◂ ▸") + "\n")
			}
		}
		b.WriteString(styles.Prompt.Render("[" + w.submitLabel + "]"))

	case widgetTextInput:
		b.WriteString(w.text.View() + "\n")
		if w.optional {
			b.WriteString(styles.Muted.Render("ctrl+s: " + w.skipCaption()))
		}

	case widgetNumberConfirm:
		b.WriteString(styles.FieldLabel.Render(confirmLabel(w.numField)) + "\n")
		b.WriteString(w.text.View())

	case widgetPropertyCards:
		b.WriteString(w.cardsView(styles))
	}
	return styles.WidgetPane.Render(strings.TrimRight(b.String(), "\n"))
}

func (w *widget) cardsView(styles ui.Styles) string {
	if w.cardsLoading {
		return styles.Muted.Render("Loading properties...")
	}
	if w.cardsFailed {
		return styles.Error.Render("Could not load properties. Please try again.")
	}
	listings := w.browser.Listings()
	if len(listings) == 0 {
		return styles.Muted.Render("No properties found matching your criteria.")
	}

	var b strings.Builder
	for i, l := range listings {
		style := styles.Card
		if i == w.cardIdx {
			style = styles.CardSelected
		}
		b.WriteString(style.Render(properties.CardLine(l)) + "\n")
	}
	b.WriteString(styles.Muted.Render("b: brochure · q: quote"))
	if w.browser.CanShowMore() {
		b.WriteString(styles.Muted.Render(" · m: show more"))
	}
	return b.String()
}

func confirmLabel(f protocol.NumberField) string {
	if len(f.Options) > 0 {
		return f.Options[0].Label
	}
	return "Confirm"
}
