package playback

const eventBufferSize = 16

// Subscription delivers session events to one listener. Sends never
// block the controller: a listener that falls behind loses events. For
// position updates the oldest are dropped so the freshest position always
// gets through; every other stream drops the newest.
//
// Done is closed when the listener unsubscribes or the service closes.
type Subscription struct {
	StateChanged    <-chan StateChange
	TrackChanged    <-chan TrackChange
	PositionChanged <-chan PositionChange
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	VolumeChanged   <-chan VolumeChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	state    chan StateChange
	track    chan TrackChange
	position chan PositionChange
	queue    chan QueueChange
	mode     chan ModeChange
	volume   chan VolumeChange
	errs     chan ErrorEvent
	done     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		state:    make(chan StateChange, eventBufferSize),
		track:    make(chan TrackChange, eventBufferSize),
		position: make(chan PositionChange, eventBufferSize),
		queue:    make(chan QueueChange, eventBufferSize),
		mode:     make(chan ModeChange, eventBufferSize),
		volume:   make(chan VolumeChange, eventBufferSize),
		errs:     make(chan ErrorEvent, eventBufferSize),
		done:     make(chan struct{}),
	}
	s.StateChanged, s.TrackChanged, s.PositionChanged = s.state, s.track, s.position
	s.QueueChanged, s.ModeChanged, s.VolumeChanged = s.queue, s.mode, s.volume
	s.Error, s.Done = s.errs, s.done
	return s
}

func (s *Subscription) close() { close(s.done) }

func (s *Subscription) sendState(e StateChange)   { offer(s.state, e) }
func (s *Subscription) sendTrack(e TrackChange)   { offer(s.track, e) }
func (s *Subscription) sendQueue(e QueueChange)   { offer(s.queue, e) }
func (s *Subscription) sendMode(e ModeChange)     { offer(s.mode, e) }
func (s *Subscription) sendVolume(e VolumeChange) { offer(s.volume, e) }
func (s *Subscription) sendError(e ErrorEvent)    { offer(s.errs, e) }

func (s *Subscription) sendPosition(e PositionChange) {
	for {
		select {
		case s.position <- e:
			return
		default:
		}
		select {
		case <-s.position:
		default:
		}
	}
}

// offer sends e unless ch is full.
func offer[T any](ch chan T, e T) {
	select {
	case ch <- e:
	default:
	}
}
