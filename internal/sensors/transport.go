package sensors

import "github.com/secretengineer/GreenOS/internal/models"

// Transport supplies one poll worth of raw readings. Implementations
// wrap whatever actually produces the values: an MQTT feed from field
// nodes, or a scripted sequence for tests and bench runs. The core
// never touches buses or registers directly.
type Transport interface {
	Poll(nowMs int64) (models.RawInputs, error)
}

// ScriptedTransport replays a fixed sequence of raw inputs. Once the
// script is exhausted the last entry repeats, so long-running loops
// keep receiving stable values.
type ScriptedTransport struct {
	Inputs []models.RawInputs
	next   int
}

// Poll returns the next scripted entry, restamped with the caller's
// tick.
func (s *ScriptedTransport) Poll(nowMs int64) (models.RawInputs, error) {
	if len(s.Inputs) == 0 {
		return models.RawInputs{TickMs: nowMs}, nil
	}
	idx := s.next
	if idx >= len(s.Inputs) {
		idx = len(s.Inputs) - 1
	} else {
		s.next++
	}
	in := s.Inputs[idx]
	in.TickMs = nowMs
	return in, nil
}
