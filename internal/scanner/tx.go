package scanner

// runTX drains the outbound queue and writes each frame to its own clone of
// the endpoint (spec.md §4.5). It returns once the queue is closed and
// fully drained (Shutdown closes it after the last producer stops), or as
// soon as a write fails: an endpoint write error is fatal to TX.
func (s *Scanner) runTX() {
	defer s.wg.Done()

	tx := s.ep.Clone()
	for {
		f, ok := s.outbound.Pop()
		if !ok {
			return
		}
		if err := tx.Send(f); err != nil {
			s.log.WithError(err).Error("sending frame; stopping TX worker")
			return
		}
	}
}
