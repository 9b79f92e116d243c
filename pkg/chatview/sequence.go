package chatview

// sequencer issues monotonic tokens per logical resource. A response is
// applied only when its token is still the latest one issued.
type sequencer struct {
	latest map[string]uint64
}

func (s *sequencer) next(resource string) uint64 {
	if s.latest == nil {
		s.latest = make(map[string]uint64)
	}
	s.latest[resource]++
	return s.latest[resource]
}

func (s *sequencer) current(resource string, token uint64) bool {
	return s.latest[resource] == token
}
