package server

import (
	"fmt"
	"sort"
	"strings"

	"mayachat/internal/protocol"
)

// flowState names one node of the scripted dialogue.
type flowState string

const (
	stateGreeting          flowState = "greeting"
	stateCategorySelection flowState = "category_selection"
	stateLeadCapture       flowState = "lead_capture"

	stateBrochureStart        flowState = "brochure_start"
	stateBrochurePreferences  flowState = "brochure_preferences"
	stateBrochureCollected    flowState = "brochure_preferences_collected"
	stateBrochureConfirmation flowState = "brochure_confirmation"
	stateBrochureComplete     flowState = "brochure_complete"

	stateBookingStart            flowState = "booking_start"
	stateBookingPropertyInterest flowState = "booking_property_interest"
	stateBookingDatePreference   flowState = "booking_date_preference"
	stateBookingTimePreference   flowState = "booking_time_preference"
	stateBookingPhoneConfirmed   flowState = "booking_phone_confirmed"
	stateBookingSpecialRequests  flowState = "booking_special_requests"
	stateBookingConfirmation     flowState = "booking_confirmation"
	stateBookingComplete         flowState = "booking_complete"

	stateAvailabilityStart        flowState = "availability_start"
	stateAvailabilityLocation     flowState = "availability_location"
	stateAvailabilityBudget       flowState = "availability_budget"
	stateAvailabilityPropertyType flowState = "availability_property_type"
	stateAvailabilityTimeline     flowState = "availability_timeline"
	stateAvailabilitySearch       flowState = "availability_search"
	stateAvailabilityResults      flowState = "availability_results"
	stateAvailabilityComplete     flowState = "availability_complete"

	stateFAQStart          flowState = "faq_start"
	stateFAQCategorySelect flowState = "faq_category_select"
	stateFAQHandle         flowState = "faq_handle"
	stateFAQFollowup       flowState = "faq_followup"
	stateFAQComplete       flowState = "faq_complete"

	stateOtherStart    flowState = "other_start"
	stateOtherInput    flowState = "other_input"
	stateOtherHandled  flowState = "other_handled"
	stateOtherComplete flowState = "other_complete"

	stateHandoff flowState = "handoff"
	stateEnded   flowState = "ended"
)

// stateResponse is the scripted reply for entering one state. Component is a
// builder so states can fold session context into their descriptor.
type stateResponse struct {
	message   string
	component func(ctx map[string]string) *protocol.UIComponent
	next      flowState
	showMenu  bool
	// needsAnswer marks states whose message is produced by the answerer
	// instead of the script.
	needsAnswer bool
}

func static(c *protocol.UIComponent) func(map[string]string) *protocol.UIComponent {
	return func(map[string]string) *protocol.UIComponent { return c }
}

// greetingMessage opens every session.
const greetingMessage = "Welcome to Vivid Realty - Chennai's leading Real Estate developer. How can I assist you today?"

const leadCaptureMessage = "To help you further, please provide your contact details. It'll just take a moment! 📝"

const menuMessage = "What else can I help you with? 🏠"

// Lead validation messages.
const (
	msgInvalidName  = "Please enter a valid name (minimum 2 characters)."
	msgInvalidEmail = "Please enter a valid email address (e.g., name@example.com)."
	msgInvalidPhone = "Please enter a valid 10-digit phone number."
)

// categories is the fixed main menu.
var categories = []protocol.Category{
	{ID: "brochure", Label: "Get Property Brochure", Emoji: "📋"},
	{ID: "booking", Label: "Book an Appointment", Emoji: "📅"},
	{ID: "availability", Label: "Check Availability / Pricing", Emoji: "💰"},
	{ID: "question", Label: "Ask a Question / Talk to Agent", Emoji: "💬"},
	{ID: "other", Label: "Other Queries", Emoji: "❓"},
}

// categoryStartState maps a menu pick to its flow entry point.
var categoryStartState = map[string]flowState{
	"brochure":     stateBrochureStart,
	"booking":      stateBookingStart,
	"availability": stateAvailabilityStart,
	"question":     stateFAQStart,
	"other":        stateOtherStart,
}

func categoryButtonsComponent() *protocol.UIComponent {
	return protocol.MustComponent(protocol.ComponentCategoryButtons, protocol.CategoryButtonsData{
		Categories: categories,
	})
}

func leadFormComponent(errors []string) *protocol.UIComponent {
	return protocol.MustComponent(protocol.ComponentLeadForm, protocol.LeadFormData{
		Fields: []protocol.FormField{
			{Name: "name", Label: "Full Name", Type: "text", Required: true},
			{Name: "email", Label: "Email Address", Type: "email", Required: true},
			{Name: "phone", Label: "Phone / WhatsApp", Type: "tel", Required: true},
		},
		Errors: errors,
	})
}

var budgetOptions = []protocol.Option{
	{Value: "under_50", Label: "Under ₹50 Lakhs"},
	{Value: "50_100", Label: "₹50L - ₹1 Crore"},
	{Value: "100_200", Label: "₹1 Cr - ₹2 Crore"},
	{Value: "200_plus", Label: "₹2 Crore+"},
	{Value: "flexible", Label: "Flexible"},
}

var propertyTypeOptions = []protocol.Option{
	{Value: "apartment", Label: "🏢 Apartment"},
	{Value: "villa", Label: "🏡 Villa"},
	{Value: "plot", Label: "📐 Plot"},
	{Value: "commercial", Label: "🏪 Commercial"},
}

var locationOptions = []protocol.Option{
	{Value: "Mumbai", Label: "Mumbai"},
	{Value: "Chennai", Label: "Chennai"},
	{Value: "Bangalore", Label: "Bangalore"},
	{Value: "Pune", Label: "Pune"},
	{Value: "Hyderabad", Label: "Hyderabad"},
	{Value: "Delhi NCR", Label: "Delhi NCR"},
}

func buttons(opts ...protocol.Option) *protocol.UIComponent {
	return protocol.MustComponent(protocol.ComponentButtons, protocol.ButtonsData{Options: opts})
}

// flowTable is the scripted dialogue: entering a state yields its response,
// any input in a state advances to next.
var flowTable = map[flowState]stateResponse{
	stateBrochureStart: {
		message:  "✅ Perfect! Your property brochure is on its way to your email.\n\nLet's find properties that match your needs! 🏡",
		next:     stateBrochurePreferences,
		showMenu: true,
	},
	stateBrochurePreferences: {
		message: "Please share your preferences:",
		component: static(protocol.MustComponent(protocol.ComponentPreferenceForm, protocol.PreferenceFormData{
			Fields: []protocol.PreferenceField{
				{Name: "budget", Label: "💰 Budget Range", Type: protocol.PreferenceDropdown, Options: budgetOptions, Required: true, SubmitLabel: "Find Properties"},
				{Name: "location", Label: "📍 Preferred Location", Type: protocol.PreferenceMultiselect, Options: locationOptions, Required: true},
				{Name: "property_type", Label: "🏠 Property Type", Type: protocol.PreferenceButtons, Options: propertyTypeOptions[:4], Required: true},
			},
		})),
		next:     stateBrochureCollected,
		showMenu: true,
	},
	stateBrochureCollected: {
		message: "Excellent! Based on your preferences:\n\n{preferences_summary}\n\nHere are properties matching your criteria:",
		component: func(ctx map[string]string) *protocol.UIComponent {
			return protocol.MustComponent(protocol.ComponentPropertyCards, protocol.PropertyCardsData{
				PropertyType: ctx["property_type"],
				Filtered:     true,
				Preferences:  ctx["preferences_json"],
			})
		},
		next:     stateBrochureConfirmation,
		showMenu: true,
	},
	stateBrochureConfirmation: {
		message: "Is there anything specific you'd like to know about our properties?",
		component: static(buttons(
			protocol.Option{Value: "amenities", Label: "🏊 Amenities"},
			protocol.Option{Value: "payment", Label: "💳 Payment Plans"},
			protocol.Option{Value: "possession", Label: "🔑 Possession Timeline"},
			protocol.Option{Value: "nothing", Label: "Nothing, I'm good!"},
		)),
		next:     stateBrochureComplete,
		showMenu: true,
	},
	stateBrochureComplete: {
		message: "Perfect! Our team will reach out to you soon with detailed information.\n\nThank you for your interest! 🙏",
		component: static(buttons(
			protocol.Option{Value: "menu", Label: "🏠 Back to Main Menu"},
			protocol.Option{Value: "end", Label: "👋 End Chat"},
		)),
		next: stateHandoff,
	},

	stateBookingStart: {
		message: "✅ Great! Let's schedule your site visit! 📅\n\nAre you interested in visiting a specific property?",
		component: static(buttons(
			protocol.Option{Value: "specific", Label: "Yes, specific property"},
			protocol.Option{Value: "any", Label: "Show me options"},
			protocol.Option{Value: "not_sure", Label: "Not sure yet"},
		)),
		next:     stateBookingPropertyInterest,
		showMenu: true,
	},
	stateBookingPropertyInterest: {
		message: "When would you prefer to visit?",
		component: static(buttons(
			protocol.Option{Value: "this_week", Label: "📅 This Week"},
			protocol.Option{Value: "next_week", Label: "📅 Next Week"},
			protocol.Option{Value: "flexible", Label: "🤷 Flexible"},
		)),
		next:     stateBookingDatePreference,
		showMenu: true,
	},
	stateBookingDatePreference: {
		message: "What time works best for you?",
		component: static(buttons(
			protocol.Option{Value: "morning", Label: "🌅 Morning (9 AM - 12 PM)"},
			protocol.Option{Value: "afternoon", Label: "☀️ Afternoon (12 PM - 4 PM)"},
			protocol.Option{Value: "evening", Label: "🌆 Evening (4 PM - 7 PM)"},
		)),
		next:     stateBookingTimePreference,
		showMenu: true,
	},
	stateBookingTimePreference: {
		message: "Our agent will call you to confirm the visit. Is this the right number?",
		component: func(ctx map[string]string) *protocol.UIComponent {
			return protocol.MustComponent(protocol.ComponentNumberConfirmation, protocol.NumberConfirmationData{
				Fields: []protocol.NumberField{{
					Name:  "phone",
					Label: ctx["phone"],
					Options: []protocol.Option{
						{Value: "confirm", Label: "✅ Yes, call this number"},
					},
				}},
			})
		},
		next:     stateBookingPhoneConfirmed,
		showMenu: true,
	},
	stateBookingPhoneConfirmed: {
		message: "Any special requests or requirements for the visit? (Optional)",
		component: static(protocol.MustComponent(protocol.ComponentTextInput, protocol.TextInputData{
			Placeholder: "E.g., Need wheelchair access, want to see specific floor plans...",
			Optional:    true,
			SkipLabel:   "No special requests",
		})),
		next:     stateBookingSpecialRequests,
		showMenu: true,
	},
	stateBookingSpecialRequests: {
		message:  "✅ Perfect! Your site visit has been scheduled!\n\n📋 Summary:\n{booking_summary}\n\nOur agent will call you at {phone} to confirm the exact date and time.\n\nLooking forward to showing you our properties! 🏡",
		next:     stateBookingConfirmation,
		showMenu: true,
	},
	stateBookingConfirmation: {
		message: "Would you like to do anything else?",
		component: static(buttons(
			protocol.Option{Value: "brochure", Label: "📋 Get Brochure"},
			protocol.Option{Value: "menu", Label: "🏠 Main Menu"},
			protocol.Option{Value: "end", Label: "👋 End Chat"},
		)),
		next: stateBookingComplete,
	},
	stateBookingComplete: {
		message: "Thank you! We'll be in touch soon! 🙏",
		next:    stateHandoff,
	},

	stateAvailabilityStart: {
		message: "Let's find the perfect property for you! 🔍\n\nWhere are you looking to buy?",
		component: static(protocol.MustComponent(protocol.ComponentPreferenceForm, protocol.PreferenceFormData{
			Fields: []protocol.PreferenceField{
				{Name: "location", Label: "📍 Select Location(s)", Type: protocol.PreferenceMultiselect, Options: locationOptions, Required: true, SubmitLabel: "Continue"},
			},
		})),
		next:     stateAvailabilityLocation,
		showMenu: true,
	},
	stateAvailabilityLocation: {
		message: "What's your budget range?",
		component: static(protocol.MustComponent(protocol.ComponentPreferenceForm, protocol.PreferenceFormData{
			Fields: []protocol.PreferenceField{
				{Name: "budget", Label: "💰 Budget Range", Type: protocol.PreferenceDropdown, Options: budgetOptions[:4], Required: true, SubmitLabel: "Continue"},
			},
		})),
		next:     stateAvailabilityBudget,
		showMenu: true,
	},
	stateAvailabilityBudget: {
		message:   "What type of property are you interested in?",
		component: static(buttons(propertyTypeOptions...)),
		next:      stateAvailabilityPropertyType,
		showMenu:  true,
	},
	stateAvailabilityPropertyType: {
		message: "When are you planning to make a decision?",
		component: static(buttons(
			protocol.Option{Value: "urgent", Label: "🔥 Urgent (This month)"},
			protocol.Option{Value: "soon", Label: "📅 Soon (1-3 months)"},
			protocol.Option{Value: "later", Label: "⏰ Later (3-6 months)"},
			protocol.Option{Value: "exploring", Label: "🔍 Just exploring"},
		)),
		next:     stateAvailabilityTimeline,
		showMenu: true,
	},
	stateAvailabilityTimeline: {
		message:  "🔍 Searching for properties matching your criteria...\n\n{search_summary}",
		next:     stateAvailabilitySearch,
		showMenu: true,
	},
	stateAvailabilitySearch: {
		message: "Based on your requirements, we have several options available!\n\nOur agent will send detailed property listings with:\n✅ Photos & floor plans\n✅ Pricing & payment options\n✅ Availability status\n\nto your email: {email}",
		component: static(buttons(
			protocol.Option{Value: "callback", Label: "📞 Request Callback"},
			protocol.Option{Value: "visit", Label: "📅 Schedule Visit"},
			protocol.Option{Value: "menu", Label: "🏠 Main Menu"},
		)),
		next: stateAvailabilityResults,
	},
	stateAvailabilityResults: {
		message: "Perfect! We'll be in touch with detailed information soon! 🙏",
		next:    stateAvailabilityComplete,
	},
	stateAvailabilityComplete: {
		message: "Thank you for your interest!",
		next:    stateHandoff,
	},

	stateFAQStart: {
		message: "I'm here to answer your questions! 💬\n\nWhat would you like to know about?",
		component: static(buttons(
			protocol.Option{Value: "loan", Label: "💰 Loans & Finance"},
			protocol.Option{Value: "amenities", Label: "🏊 Amenities"},
			protocol.Option{Value: "documentation", Label: "📄 Documentation"},
			protocol.Option{Value: "possession", Label: "🔑 Possession Timeline"},
			protocol.Option{Value: "custom", Label: "❓ Other Question"},
		)),
		next:     stateFAQCategorySelect,
		showMenu: true,
	},
	stateFAQCategorySelect: {
		needsAnswer: true,
		next:        stateFAQHandle,
		showMenu:    true,
	},
	stateFAQHandle: {
		message: "Is there anything else I can help you with?",
		component: static(buttons(
			protocol.Option{Value: "another", Label: "❓ Ask Another Question"},
			protocol.Option{Value: "agent", Label: "💬 Talk to Agent"},
			protocol.Option{Value: "menu", Label: "🏠 Main Menu"},
		)),
		next: stateFAQFollowup,
	},
	stateFAQFollowup: {
		message: "Thank you! Our team is here to help! 🙏",
		next:    stateFAQComplete,
	},
	stateFAQComplete: {
		next: stateHandoff,
	},

	stateOtherStart: {
		message: "Please tell me what you're looking for, and I'll do my best to help! 💬",
		component: static(protocol.MustComponent(protocol.ComponentTextInput, protocol.TextInputData{
			Placeholder: "Type your question or query...",
		})),
		next:     stateOtherInput,
		showMenu: true,
	},
	stateOtherInput: {
		message: "Thank you for your query. Our agent will contact you shortly to assist with: \"{query}\"",
		component: static(buttons(
			protocol.Option{Value: "menu", Label: "🏠 Main Menu"},
			protocol.Option{Value: "end", Label: "👋 End Chat"},
		)),
		next: stateOtherHandled,
	},
	stateOtherHandled: {
		message: "We'll be in touch soon! 🙏",
		next:    stateOtherComplete,
	},
	stateOtherComplete: {
		next: stateHandoff,
	},

	stateHandoff: {
		message: "Thank you for chatting with us! Our team will be in touch soon. Have a great day! 🙏✨",
		component: static(buttons(
			protocol.Option{Value: "restart", Label: "🔄 Start Over"},
			protocol.Option{Value: "end", Label: "👋 Close Chat"},
		)),
		next: stateEnded,
	},
}

// formatMessage substitutes {placeholder} markers with session context.
func formatMessage(msg string, ctx map[string]string) string {
	if !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(ctx)*2)
	for k, v := range ctx {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// summarize renders collected flow data as "key: value" lines for the
// confirmation messages.
func summarize(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == "preferences_json" || k == "query" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "• %s: %s\n", strings.ReplaceAll(k, "_", " "), data[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
