package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

type CalendarEventsInput struct {
	Attendee string `json:"attendee,omitempty"`
	Days     int    `json:"days,omitempty"`
}

type CalendarEventsOutput struct {
	Events []model.CalendarEvent `json:"events"`
	Total  int                   `json:"total"`
}

func createCalendarEventsTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCalendarEvents,
			Desc: "Look up upcoming team calendar events. Returns title, start/end times and attendees. Use this tool when the user asks about meetings, schedules or availability.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"attendee": {
					Type: "string",
					Desc: "Optional attendee name to filter by",
				},
				"days": {
					Type: "number",
					Desc: "Look-ahead window in days (default: 7)",
				},
			}),
		},
		func(ctx context.Context, in *CalendarEventsInput) (*CalendarEventsOutput, error) {
			var matched []model.CalendarEvent
			for _, ev := range mockEvents {
				if in.Attendee != "" && !hasAttendee(ev, in.Attendee) {
					continue
				}
				matched = append(matched, ev)
			}
			return &CalendarEventsOutput{Events: matched, Total: len(matched)}, nil
		},
	)
}

func hasAttendee(ev model.CalendarEvent, name string) bool {
	for _, a := range ev.Attendees {
		if strings.EqualFold(a, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

var mockEvents = []model.CalendarEvent{
	{Title: "Sprint planning", Start: "2026-09-01T10:00", End: "2026-09-01T11:00", Attendees: []string{"maya", "deniz", "rowan"}},
	{Title: "Billing revamp sync", Start: "2026-09-02T14:00", End: "2026-09-02T14:30", Attendees: []string{"deniz", "maya"}},
	{Title: "Quarterly review", Start: "2026-09-04T09:00", End: "2026-09-04T10:30", Attendees: []string{"rowan"}},
}
