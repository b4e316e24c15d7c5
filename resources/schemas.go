package resources

import (
	"github.com/embld/contentcore/mutation"
	"github.com/embld/contentcore/store"
)

// IdeaSchema is the writable surface of the ideas table.
var IdeaSchema = &mutation.Schema{
	Table: "ideas",
	Fields: map[string]mutation.Field{
		"title":        mutation.StringField("required,min=1,max=120"),
		"problem":      mutation.StringField("required,min=1,max=5000"),
		"solution":     mutation.StringField("required,min=1,max=5000"),
		"target_users": mutation.StringField("omitempty,max=500"),
		"category":     mutation.StringField("required,min=1,max=50"),
		"tags":         mutation.StringListField("omitempty,max=10,dive,max=30"),
	},
	Tags: func(id string) []string { return []string{TagIdeas, IdeaTag(id)} },
}

// ProfileSchema is the writable surface of a user's own row. The row id is
// the owner, so a user may only edit their own profile.
var ProfileSchema = &mutation.Schema{
	Table:       "users",
	OwnerColumn: "id",
	Fields: map[string]mutation.Field{
		"username":   mutation.StringField("omitempty,min=3,max=30"),
		"avatar_url": mutation.StringField("omitempty,url"),
		"bio":        mutation.StringField("omitempty,max=500"),
	},
	Tags: func(id string) []string { return []string{ProfileTag(id)} },
}

// OwnerPostSchema is the writable surface of the owner_posts table.
var OwnerPostSchema = &mutation.Schema{
	Table: "owner_posts",
	Fields: map[string]mutation.Field{
		"title":       mutation.StringField("required,min=1,max=200"),
		"description": mutation.StringField("required,min=1,max=2000"),
		"content":     mutation.StringField("omitempty,max=20000"),
		"project_url": mutation.StringField("omitempty,url"),
		"github_url":  mutation.StringField("omitempty,url"),
		"category":    mutation.StringField("omitempty,max=50"),
		"is_public":   mutation.BoolField(),
	},
	Tags: func(id string) []string { return []string{TagOwnerPosts, OwnerPostTag(id)} },
}

// CommentSchema is the writable surface of idea comments. The idea id is
// assigned from the route and the idea's tag is published by the Catalog.
var CommentSchema = &mutation.Schema{
	Table: "comments",
	Fields: map[string]mutation.Field{
		"content": mutation.StringField("required,min=1,max=2000"),
	},
}

// Reaction tables carry no caller-writable fields: a row is the parent id
// plus the acting principal.
var (
	WantSchema          = &mutation.Schema{Table: "wants", Fields: map[string]mutation.Field{}}
	OwnerPostLikeSchema = &mutation.Schema{Table: "owner_post_likes", Fields: map[string]mutation.Field{}}
	OwnerPostSaveSchema = &mutation.Schema{Table: "owner_post_saves", Fields: map[string]mutation.Field{}}
)

// Tables declares the content tables for a store.MemoryStore, with the same
// unique constraints as the Postgres migrations.
func Tables() []store.TableSpec {
	return []store.TableSpec{
		{Name: "users", Unique: []string{"email", "username"}, Timestamps: true},
		{Name: IdeaSchema.Table, Timestamps: true},
		{Name: OwnerPostSchema.Table, Timestamps: true},
		{Name: CommentSchema.Table, Timestamps: true},
		{Name: WantSchema.Table, UniqueTogether: [][]string{{"idea_id", "user_id"}}},
		{Name: OwnerPostLikeSchema.Table, UniqueTogether: [][]string{{"post_id", "user_id"}}},
		{Name: OwnerPostSaveSchema.Table, UniqueTogether: [][]string{{"post_id", "user_id"}}},
	}
}
