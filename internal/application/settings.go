package application

import "sync/atomic"

// Settings holds user settings that can change while sessions are open.
type Settings struct {
	includeGeometry atomic.Bool
}

// NewSettings creates settings with the given include-geometry default.
func NewSettings(includeGeometry bool) *Settings {
	s := &Settings{}
	s.includeGeometry.Store(includeGeometry)
	return s
}

// IncludeGeometry reports whether new result sets show the geometry column.
func (s *Settings) IncludeGeometry() bool {
	return s.includeGeometry.Load()
}

// SetIncludeGeometry changes the setting. Result sets already open keep their schema.
func (s *Settings) SetIncludeGeometry(v bool) {
	s.includeGeometry.Store(v)
}
