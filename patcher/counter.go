package patcher

import "fmt"

// Counter tallies registered rules against rules that fired at least once.
type Counter struct {
	Applied int
	Total   int
}

// Complete reports whether every registered rule fired.
func (c Counter) Complete() bool {
	return c.Applied >= c.Total
}

func (c Counter) String() string {
	return fmt.Sprintf("%d / %d patches applied", c.Applied, c.Total)
}
