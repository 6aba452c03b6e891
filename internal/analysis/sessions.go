package analysis

import "time"

// sessionHours is an open/close pair in UTC wall-clock time. Sessions that
// cross midnight wrap (open > close).
type sessionHours struct {
	open  int // minutes from midnight UTC
	close int
}

// SessionManager enforces canonical UTC session times and the high-volume
// overlap killzones in which execution is allowed.
type SessionManager struct {
	sessions map[string]sessionHours
	overlaps []sessionHours
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: map[string]sessionHours{
			"SYDNEY":   {open: 22 * 60, close: 7 * 60},
			"TOKYO":    {open: 0, close: 9 * 60},
			"LONDON":   {open: 8 * 60, close: 17 * 60},
			"NEW_YORK": {open: 13 * 60, close: 22 * 60},
		},
		overlaps: []sessionHours{
			{open: 8 * 60, close: 9 * 60},   // Tokyo/London
			{open: 13 * 60, close: 17 * 60}, // London/NY
			{open: 14 * 60, close: 15 * 60}, // NY silver bullet
		},
	}
}

// ActiveSessions returns the canonical sessions active at the given instant.
func (m *SessionManager) ActiveSessions(t time.Time) []string {
	minute := utcMinute(t)
	var active []string
	for _, name := range []string{"SYDNEY", "TOKYO", "LONDON", "NEW_YORK"} {
		if between(minute, m.sessions[name]) {
			active = append(active, name)
		}
	}
	return active
}

// InKillzone reports whether execution is allowed at the given instant:
// only during session overlaps or the NY silver bullet hour.
func (m *SessionManager) InKillzone(t time.Time) bool {
	minute := utcMinute(t)
	for _, o := range m.overlaps {
		if between(minute, o) {
			return true
		}
	}
	return false
}

func utcMinute(t time.Time) int {
	u := t.UTC()
	return u.Hour()*60 + u.Minute()
}

// between handles midnight wrap-arounds: when open > close the span crosses
// 00:00 UTC.
func between(minute int, h sessionHours) bool {
	if h.open < h.close {
		return h.open <= minute && minute <= h.close
	}
	return minute >= h.open || minute <= h.close
}
