package models

// Actor is whoever performs a lifecycle operation. ID is empty for
// anonymous callers; Name is what ends up in status history.
type Actor struct {
	ID   string
	Name string
}

func (a Actor) Anonymous() bool { return a.ID == "" }
