package domain

import "time"

// Record is one candidate row of the influencer table.
// Numeric cells that could not be parsed are nil.
type Record struct {
	Name          string     `json:"name"`
	Handle        string     `json:"handle"`
	ProfileURL    string     `json:"profile_url,omitempty"`
	City          string     `json:"city"`
	Topics        string     `json:"topics"`
	Language      string     `json:"language"`
	Followers     *int       `json:"followers,omitempty"`
	ReachStories  *int       `json:"reach_stories,omitempty"`
	ReachReels    *int       `json:"reach_reels,omitempty"`
	ReachPost     *int       `json:"reach_post,omitempty"`
	Price         *int       `json:"price,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	Gender        string     `json:"gender,omitempty"`
	Age           string     `json:"age,omitempty"`
	MaritalStatus string     `json:"marital_status,omitempty"`
	ChildrenCount *int       `json:"children_count,omitempty"`
}

// Profile is the persisted registration row.
type Profile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Industry  string    `json:"industry"`
	Position  string    `json:"position"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Selection is the persisted row of a finalized results pick.
type Selection struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Handles      []string  `json:"handles"`
	ExportFormat string    `json:"export_format,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
