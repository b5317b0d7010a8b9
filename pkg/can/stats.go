package can

// Stats counts assembled messages.
type Stats struct {
	Frames    uint64 `json:"frames"`
	Valid     uint64 `json:"valid"`
	Extended  uint64 `json:"extended"`
	Remote    uint64 `json:"remote"`
	Nacked    uint64 `json:"nacked"`
	StuffBits uint64 `json:"stuffBits"`
	// Errors is indexed by Reason name.
	Errors map[string]uint64 `json:"errors"`
}

// Add counts m.
func (s *Stats) Add(m Message) {
	if s.Errors == nil {
		s.Errors = map[string]uint64{}
	}
	s.Frames++
	if m.Extended {
		s.Extended++
	}
	if m.Remote {
		s.Remote++
	}
	if !m.Valid {
		s.Errors[m.Error.String()]++
		return
	}
	s.Valid++
	s.StuffBits += m.StuffBits
	if !m.Acked {
		s.Nacked++
	}
}
