package model

// RouteDecision is the routing engine's verdict for the current round.
type RouteDecision string

const (
	RouteUseTools       RouteDecision = "use_tools"
	RouteSynthesis      RouteDecision = "synthesis"
	RouteSimple         RouteDecision = "simple_response"
	RouteConversational RouteDecision = "conversational_response"
	RouteEnd            RouteDecision = "end"
)

// String implements fmt.Stringer for log fields.
func (d RouteDecision) String() string {
	return string(d)
}
