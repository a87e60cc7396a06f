package article

import "time"

type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	Image     *string   `json:"image"`
	Published bool      `json:"published"`
	AuthorID  *string   `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ListFilter struct {
	// PublishedOnly hides drafts; listing everything is an admin concern.
	PublishedOnly bool
	Search        string
	Page          int
	Limit         int
}
