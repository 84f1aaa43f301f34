package survey

type Kind string

const (
	Text     Kind = "text"
	TextArea Kind = "textarea"
	Date     Kind = "date"
	Single   Kind = "single"
	Multi    Kind = "multi"
)

// Other is the choice that opens a free-text follow-up.
const Other = "Other"

// Condition shows a question only when another question has Value among
// its answers.
type Condition struct {
	Question string
	Value    string
}

type Question struct {
	ID      string
	Label   string
	Kind    Kind
	Choices []string
	ShowIf  *Condition
}

type Section struct {
	Title     string
	Questions []Question
}

const (
	Title    = "AI Doula Personalization Questionnaire"
	Subtitle = "Helping us create a calming and supportive experience for you during labor."
	Thanks   = "Thank you for completing the questionnaire! Your preferences have been saved."
)

func when(id, value string) *Condition { return &Condition{Question: id, Value: value} }

var Catalog = []Section{
	{
		Title: "1. General Information",
		Questions: []Question{
			{ID: "full_name", Label: "Full name (optional)", Kind: Text},
			{ID: "preferred_name", Label: "Preferred name/nickname", Kind: Text},
			{ID: "pronouns", Label: "Preferred pronouns", Kind: Text},
			{ID: "due_date", Label: "Expected due date", Kind: Date},
		},
	},
	{
		Title: "2. Language & Communication Style",
		Questions: []Question{
			{
				ID:      "language",
				Label:   "What language(s) would you like AI.doula to use? (Multiple selections allowed)",
				Kind:    Multi,
				Choices: []string{"English", "Spanish", Other},
			},
			{ID: "language_other", Label: "Please specify other language", Kind: Text, ShowIf: when("language", Other)},
			{
				ID:      "tone",
				Label:   "What tone do you find most comforting?",
				Kind:    Single,
				Choices: []string{"Warm and gentle", "Encouraging and empowering", "Calm and neutral", Other},
			},
			{ID: "tone_other", Label: "Please specify the tone", Kind: Text, ShowIf: when("tone", Other)},
			{
				ID:      "humor",
				Label:   "Would you like AI.doula to use humor when appropriate?",
				Kind:    Single,
				Choices: []string{"Yes, I appreciate light humor", "A little is fine", "No, I prefer a serious tone"},
			},
		},
	},
	{
		Title: "3. Support Preferences",
		Questions: []Question{
			{
				ID:    "support",
				Label: "How do you prefer to receive support? (Multiple selections allowed)",
				Kind:  Multi,
				Choices: []string{
					"Short affirmations and calming words",
					"Guided breathing exercises",
					"Mindfulness and meditation guidance",
					"Step-by-step explanations",
					"Encouraging messages based on progress",
					Other,
				},
			},
			{ID: "support_other", Label: "Please specify other support preference", Kind: Text, ShowIf: when("support", Other)},
			{
				ID:      "realtime",
				Label:   "Would you like AI.doula to provide real-time support during contractions?",
				Kind:    Single,
				Choices: []string{"Yes", "No"},
			},
			{ID: "affirmations", Label: "Are there any specific affirmations or comforting phrases you'd like to hear?", Kind: TextArea},
		},
	},
	{
		Title: "4. Sensory Preferences",
		Questions: []Question{
			{
				ID:      "sensory",
				Label:   "Do you prefer AI.doula to guide you with:",
				Kind:    Single,
				Choices: []string{"Spoken words only", "Background calming sounds/music"},
			},
			{
				ID:    "sounds",
				Label: "If using sounds, what kind do you prefer? (Multiple selections allowed)",
				Kind:  Multi,
				Choices: []string{
					"Nature sounds (rain, ocean, etc.)",
					"Soft instrumental music",
					"No sound, just voice",
					Other,
				},
				ShowIf: when("sensory", "Background calming sounds/music"),
			},
			{ID: "sounds_other", Label: "Please specify other sound preference", Kind: Text, ShowIf: when("sounds", Other)},
		},
	},
	{
		Title: "5. Personalization Based on Past Experiences",
		Questions: []Question{
			{
				ID:      "first_labor",
				Label:   "Is this your first labor?",
				Kind:    Single,
				Choices: []string{"Yes", "No, I've given birth before"},
			},
			{
				ID:     "helpful_before",
				Label:  "If you've given birth before, is there anything you found helpful last time?",
				Kind:   TextArea,
				ShowIf: when("first_labor", "No, I've given birth before"),
			},
			{ID: "avoid", Label: "Is there anything you'd like to avoid based on past experiences?", Kind: TextArea},
			{ID: "fears", Label: "Do you have any fears or concerns about labor that AI.doula should be aware of?", Kind: TextArea},
		},
	},
	{
		Title: "6. Partner & Support System",
		Questions: []Question{
			{
				ID:      "include_partner",
				Label:   "Would you like AI.doula to offer words of encouragement for your birth partner/support person as well?",
				Kind:    Single,
				Choices: []string{"Yes", "No"},
			},
			{
				ID:      "partner_support",
				Label:   "If yes, how would you like AI.doula to involve them? (Multiple selections allowed)",
				Kind:    Multi,
				Choices: []string{"Reminders for massage and physical support", "Encouraging words for them", Other},
				ShowIf:  when("include_partner", "Yes"),
			},
			{
				ID:     "partner_other",
				Label:  "Please specify other support preference for partner",
				Kind:   Text,
				ShowIf: when("partner_support", Other),
			},
		},
	},
	{
		Title: "7. Additional Customization",
		Questions: []Question{
			{ID: "cultural", Label: "Do you have any specific cultural or spiritual preferences AI.doula should be aware of?", Kind: TextArea},
			{ID: "additional", Label: "Any additional preferences or requests?", Kind: TextArea},
		},
	},
}

// Lookup finds a question by ID.
func Lookup(id string) (Question, bool) {
	for _, s := range Catalog {
		for _, q := range s.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return Question{}, false
}
