package playback

import "time"

// stabilizeLocked runs step of the start sequence for epoch.
//
// Some sources report a drifting position right after they finish
// buffering. The delay is split into s.steps intervals; the position is
// forced to zero before each interval and once more after the last one,
// then output starts. Steps are chained timers, each dropped if a newer
// load has begun.
func (s *serviceImpl) stabilizeLocked(epoch uint64, step int) {
	s.sink.SetPosition(0)
	s.position = 0

	if step >= s.steps {
		s.stabilizeTimer = nil
		s.stabilizing = false
		s.beginPlaybackLocked()
		return
	}

	interval := s.delay / time.Duration(s.steps)
	s.stabilizeTimer = time.AfterFunc(interval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.epoch != epoch || s.state != StateLoading {
			return
		}
		s.stabilizeLocked(epoch, step+1)
	})
}
