// Package calendar builds the month grid and chronological list views of
// tutoring sessions and decides which sessions a viewer may see.
//
// Everything in this package is a pure function of its inputs. Callers load
// events from the store, pass them through Filter, then hand the result to
// BuildMonthGrid or BuildList.
package calendar

import "time"

// Role identifies what a principal is allowed to do in the portal.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanManage reports whether the role may create and delete sessions, notes,
// and materials.
func (r Role) CanManage() bool {
	return r == RoleTutor || r == RoleAdmin
}

// Ownership names the tutor and student a record belongs to.
type Ownership struct {
	TutorID   string
	StudentID string
}

// Viewer is the principal a view is being rendered for.
type Viewer struct {
	ID   string
	Role Role
}

// CanSee reports whether the viewer may see a record with the given owners.
// Managers see what they tutor, students see what was scheduled for them.
// Unknown roles see nothing.
func (v Viewer) CanSee(o Ownership) bool {
	if v.ID == "" {
		return false
	}
	switch v.Role {
	case RoleTutor, RoleAdmin:
		return o.TutorID == v.ID
	case RoleStudent:
		return o.StudentID == v.ID
	default:
		return false
	}
}

// Event is a scheduled tutoring session as the views consume it.
type Event struct {
	ID        string
	Title     string
	Start     time.Time
	End       time.Time
	TutorID   string
	StudentID string
	Notes     string
}

// Owners returns the ownership pair of the event.
func (e Event) Owners() Ownership {
	return Ownership{TutorID: e.TutorID, StudentID: e.StudentID}
}

// DurationMinutes returns the session length rounded to whole minutes.
func (e Event) DurationMinutes() int {
	return int(e.End.Sub(e.Start).Round(time.Minute) / time.Minute)
}

// Filter returns the events the viewer may see. The input slice is not
// modified and the relative order of kept events is preserved.
func Filter(events []Event, viewer Viewer) []Event {
	visible := make([]Event, 0, len(events))
	for _, event := range events {
		if viewer.CanSee(event.Owners()) {
			visible = append(visible, event)
		}
	}
	return visible
}
