package model

// Document is a workspace document surfaced by the document tools.
type Document struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Owner    string `json:"owner"`
	Modified string `json:"modified"`
	Summary  string `json:"summary"`
	Body     string `json:"body,omitempty"`
}

// SearchHit is a single external web-search result.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// CalendarEvent is a scheduled event surfaced by the calendar tool.
type CalendarEvent struct {
	Title     string   `json:"title"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Attendees []string `json:"attendees,omitempty"`
}
