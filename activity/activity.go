package activity

import "fmt"

// Category is the status of an activity.
type Category int

const (
	CategoryNotStarted Category = 1
	CategoryInProgress Category = 2
	CategoryDone       Category = 3
)

// Categories lists every valid category in ascending order.
var Categories = []Category{CategoryNotStarted, CategoryInProgress, CategoryDone}

// String returns the snake_case name used in logs and metric labels.
func (c Category) String() string {
	switch c {
	case CategoryNotStarted:
		return "not_started"
	case CategoryInProgress:
		return "in_progress"
	case CategoryDone:
		return "done"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Activity is a single tracked task.
type Activity struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

// Stats summarises the store contents.
type Stats struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
	NextID     int              `json:"next_id"`
}
