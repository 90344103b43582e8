package types

import "time"

const IssueStatusOpen = "open"

type Issue struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Labels    []string  `json:"labels"`
	Number    int       `json:"number"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	AgeDays   int       `json:"age_days"`
	Status    string    `json:"status"`
}
