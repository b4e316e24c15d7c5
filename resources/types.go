package resources

import (
	"time"

	"github.com/embld/contentcore/store"
)

// Idea is a submitted product idea.
type Idea struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Problem     string    `json:"problem"`
	Solution    string    `json:"solution"`
	TargetUsers string    `json:"target_users,omitempty"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Profile is the public part of a user row.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// OwnerPost is a product post by its builder.
type OwnerPost struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	ProjectURL  string    `json:"project_url,omitempty"`
	GithubURL   string    `json:"github_url,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Comment is a remark on an idea.
type Comment struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"idea_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ReactionState is a principal's view of a want, like or save: whether they
// hold one and how many exist on the target.
type ReactionState struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

var (
	commentColumns = []string{"id", "idea_id", "user_id", "content", "created_at", "updated_at"}
	ideaColumns    = []string{"id", "user_id", "title", "problem", "solution", "target_users", "category", "tags", "status", "created_at", "updated_at"}
	profileColumns = []string{"id", "username", "avatar_url", "bio", "created_at"}
	postColumns    = []string{"id", "user_id", "title", "description", "content", "project_url", "github_url", "category", "is_public", "created_at"}
)

func ideaFromRow(r store.Row) Idea {
	return Idea{
		ID:          r.String("id"),
		UserID:      r.String("user_id"),
		Title:       r.String("title"),
		Problem:     r.String("problem"),
		Solution:    r.String("solution"),
		TargetUsers: r.String("target_users"),
		Category:    r.String("category"),
		Tags:        stringsOf(r["tags"]),
		Status:      r.String("status"),
		CreatedAt:   timeOf(r["created_at"]),
		UpdatedAt:   timeOf(r["updated_at"]),
	}
}

func profileFromRow(r store.Row) Profile {
	return Profile{
		ID:        r.String("id"),
		Username:  r.String("username"),
		AvatarURL: r.String("avatar_url"),
		Bio:       r.String("bio"),
		CreatedAt: timeOf(r["created_at"]),
	}
}

func postFromRow(r store.Row) OwnerPost {
	return OwnerPost{
		ID:          r.String("id"),
		UserID:      r.String("user_id"),
		Title:       r.String("title"),
		Description: r.String("description"),
		Content:     r.String("content"),
		ProjectURL:  r.String("project_url"),
		GithubURL:   r.String("github_url"),
		Category:    r.String("category"),
		IsPublic:    r.Bool("is_public"),
		CreatedAt:   timeOf(r["created_at"]),
	}
}

func commentFromRow(r store.Row) Comment {
	return Comment{
		ID:        r.String("id"),
		IdeaID:    r.String("idea_id"),
		UserID:    r.String("user_id"),
		Content:   r.String("content"),
		CreatedAt: timeOf(r["created_at"]),
		UpdatedAt: timeOf(r["updated_at"]),
	}
}

func stringsOf(v any) []string {
	switch vals := v.(type) {
	case []string:
		return append([]string{}, vals...)
	case []any:
		out := make([]string, 0, len(vals))
		for _, x := range vals {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

func timeOf(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}
