package domain

import "errors"

var (
	// ErrActivityNotFound is returned when the named activity does not exist.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadyRegistered is returned when a signup repeats an email already on the roster.
	ErrAlreadyRegistered = errors.New("student is already signed up for this activity")
	// ErrNotRegistered is returned when an unregister names an email missing from the roster.
	ErrNotRegistered = errors.New("student is not signed up for this activity")
)

// Activity is an extracurricular activity and its ordered roster of participant emails.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// HasParticipant reports whether email is on the roster.
func (a Activity) HasParticipant(email string) bool {
	for _, p := range a.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// Clone returns a copy whose participant slice does not alias the receiver's.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = append(make([]string, 0, len(a.Participants)), a.Participants...)
	return out
}
