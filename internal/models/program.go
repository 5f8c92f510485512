package models

import "time"

// Program represents an academic track instance (an "étape") identified by a
// unique code. It owns its exclusive courses: deleting a program removes every
// course not shared with another program.
type Program struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramSummary is the list-view projection with aggregate counts.
type ProgramSummary struct {
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	Courses  int    `db:"courses" json:"courses"`
	Students int    `db:"students" json:"students"`
}

// ProgramFilter captures supported filters for listing programs.
type ProgramFilter struct {
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
