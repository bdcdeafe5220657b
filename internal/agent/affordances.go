package agent

// Affordances lists, per interaction step, the ordered matchers that locate
// the element for that step in the remote UI. Earlier matchers win.
type Affordances struct {
	Editor        []Matcher
	AttachButtons []Matcher
	UploadItems   []Matcher
	Ingested      []Matcher
	Busy          []Matcher
	Responses     []Matcher
	LoggedIn      []Matcher
}

// GeminiAffordances returns the matchers for the Gemini web app.
func GeminiAffordances() Affordances {
	editor := []Matcher{{CSS: "div[contenteditable='true']"}, {CSS: "textarea"}}
	return Affordances{
		Editor: editor,
		AttachButtons: []Matcher{
			{CSS: "button[aria-label*='Upload']"},
			{CSS: "button[aria-label*='Add files']"},
			{CSS: "button[aria-label*='Upload files']"},
			{CSS: "button[aria-label*='file menu']"},
			{CSS: "mat-icon", Text: "add"},
			{CSS: "span", Text: "add"},
			{CSS: "button:has(mat-icon)"},
			{CSS: "div[role='button']", Text: "add"},
			{CSS: "div.input-area button, .input-area-container button"},
		},
		UploadItems: []Matcher{
			{CSS: "div[role='menuitem']", Text: "Upload"},
			{CSS: "span", Text: "Upload"},
			{CSS: "li", Text: "Upload"},
			{CSS: "[aria-label*='Upload']"},
			{CSS: ".mat-mdc-menu-item", Text: "Upload"},
			{CSS: "button, a, div, span", Text: "Upload"},
		},
		Ingested: []Matcher{
			{CSS: "file-chip"},
			{CSS: ".file-name"},
			{CSS: "[aria-label*='file']"},
		},
		Busy: []Matcher{
			{CSS: "button[aria-label*='Stop']"},
			{CSS: "button[aria-label*='Interrupt']"},
		},
		Responses: []Matcher{
			{CSS: "model-response, .model-response-text"},
		},
		LoggedIn: append(append([]Matcher(nil), editor...),
			Matcher{CSS: "button, a", Text: "New chat"},
			Matcher{CSS: "button[aria-label*='Google Account']"},
		),
	}
}
