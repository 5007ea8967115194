package search

// Event types emitted during a search, in per-agent order: start, then
// result or error, then complete. A single terminal "complete" event
// follows once every agent has settled.
const (
	EventAgentStart    = "agentStart"
	EventAgentResult   = "agentResult"
	EventAgentError    = "agentError"
	EventAgentComplete = "agentComplete"
	EventComplete      = "complete"
)

// Event is one progress signal. Finished/Total let an observer render
// "N of M agents finished" without tracking state itself.
type Event struct {
	Type     string `json:"type"`
	Agent    string `json:"agent,omitempty"`
	Results  int    `json:"results"`
	Error    string `json:"error,omitempty"`
	Finished int    `json:"finished"`
	Total    int    `json:"total"`
	Cached   bool   `json:"cached,omitempty"`
}

// emit delivers an event without ever blocking the search: a full or absent
// observer channel drops the event.
func (s *Service) emit(observer chan<- Event, e Event) {
	if observer == nil {
		return
	}
	select {
	case observer <- e:
	default:
		s.logger.Debug().Str("type", e.Type).Str("agent", e.Agent).Msg("Observer channel full, dropping event")
	}
}
