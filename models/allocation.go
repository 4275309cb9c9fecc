package models

// Allocation is the human-readable amount of access a payment buys,
// recomputed whenever the chosen offer or the paid amount changes.
type Allocation struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

func (a Allocation) String() string {
	return a.Value + " " + a.Unit
}
