package model

// Choice is one interactive reply button offered to a recipient. ID is the
// payload the provider posts back when the button is tapped.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
