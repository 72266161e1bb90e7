package playback

// Notice is an observable fact about the session, delivered on the control
// loop to Options.OnNotice.
type Notice interface {
	notice()
}

// Transitioned follows every accepted transition.
type Transitioned struct {
	From, To State
	Event    Event
}

// Stopped is emitted on every entry into Idle.
type Stopped struct {
	ItemID   string
	Position float64
	Played   bool
}

// Failed carries the user-facing message of an entry into Error.
type Failed struct {
	ItemID  string
	Message string
}

// Progress follows position and duration updates.
type Progress struct {
	Position float64
	Duration float64
}

// BufferingProgress is a coarse percentage derived from elapsed buffering
// time, not from buffered data.
type BufferingProgress struct {
	Percent int
}

// SegmentEntered fires once each time playback enters a segment.
type SegmentEntered struct {
	Segment Segment
	Skipped bool
}

// TracksChanged reports the logical selection after any track change.
type TracksChanged struct {
	Audio    int
	Subtitle int
}

// VolumeChanged reports the engine's volume and mute state.
type VolumeChanged struct {
	Volume float64
	Muted  bool
}

// TrickplayReady announces a packed preview store for the current item.
type TrickplayReady struct {
	ItemID string
	Path   string
}

// AutoplayReady names the episode to play after a completed one.
type AutoplayReady struct {
	SeriesID string
	ItemID   string
}

func (Transitioned) notice()      {}
func (Stopped) notice()           {}
func (Failed) notice()            {}
func (Progress) notice()          {}
func (BufferingProgress) notice() {}
func (SegmentEntered) notice()    {}
func (TracksChanged) notice()     {}
func (VolumeChanged) notice()     {}
func (TrickplayReady) notice()    {}
func (AutoplayReady) notice()     {}
