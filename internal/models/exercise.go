package models

// Exercise is a named activity the user tracks, e.g. "Pushups".
// OrderNumber defines display position; lower sorts first.
type Exercise struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Notes       string `json:"notes"`
	OrderNumber int    `json:"order_number"`
}

// OrderID implements ordering.Orderable.
func (e Exercise) OrderID() string { return e.ID }

// Order implements ordering.Orderable.
func (e Exercise) Order() int { return e.OrderNumber }
