package can

// Sink receives the decoder output in sample order.
type Sink interface {
	AddField(Field)
	AddMarker(Marker)
}

// Results collects the decoder output in memory.
type Results struct {
	Fields  []Field
	Markers []Marker
	// NoMarkers drops markers.
	NoMarkers bool
}

// AddField appends a field.
func (r *Results) AddField(f Field) {
	r.Fields = append(r.Fields, f)
}

// AddMarker appends a marker unless markers are disabled.
func (r *Results) AddMarker(m Marker) {
	if r.NoMarkers {
		return
	}
	r.Markers = append(r.Markers, m)
}

// Errors returns the DecodeError fields.
func (r *Results) Errors() []DecodeError {
	var out []DecodeError
	for _, f := range r.Fields {
		if e, ok := f.(DecodeError); ok {
			out = append(out, e)
		}
	}
	return out
}

// Sinks fans the output out to several sinks.
type Sinks []Sink

// AddField passes the field to every sink.
func (s Sinks) AddField(f Field) {
	for _, x := range s {
		x.AddField(f)
	}
}

// AddMarker passes the marker to every sink.
func (s Sinks) AddMarker(m Marker) {
	for _, x := range s {
		x.AddMarker(m)
	}
}
