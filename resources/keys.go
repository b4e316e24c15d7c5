package resources

import (
	"time"

	"github.com/embld/contentcore/cache"
)

// Cache keys, lifetimes and invalidation tags.
const (
	IdeasListKey = "ideas-list"
	IdeasListTTL = 5 * time.Second

	IdeaDetailNamespace = "idea-detail"
	IdeaDetailTTL       = 10 * time.Second

	ProfileNamespace = "user-profile"
	ProfileTTL       = 60 * time.Second

	OwnerPostsKey = "owner-posts"
	OwnerPostsTTL = 30 * time.Second

	OwnerPostNamespace = "owner-post"
	OwnerPostTTL       = 30 * time.Second

	CommentsNamespace = "idea-comments"
	CommentsTTL       = 10 * time.Second

	WantCountNamespace = "idea-wants"
	LikeCountNamespace = "owner-post-likes"
	SaveCountNamespace = "owner-post-saves"
	ReactionCountTTL   = 10 * time.Second

	TagIdeas      = "ideas"
	TagIdea       = "idea"
	TagProfile    = "user-profile"
	TagOwnerPosts = "owner-posts"
	TagOwnerPost  = "owner-post"
)

// IdeaDetailKey is the cache key of one idea.
func IdeaDetailKey(id string) string { return cache.Key(IdeaDetailNamespace, id) }

// IdeaTag invalidates one idea.
func IdeaTag(id string) string { return cache.Key(TagIdea, id) }

// ProfileKey is the cache key of one user profile.
func ProfileKey(id string) string { return cache.Key(ProfileNamespace, id) }

// ProfileTag invalidates one user profile.
func ProfileTag(id string) string { return cache.Key(TagProfile, id) }

// OwnerPostKey is the cache key of one public owner post.
func OwnerPostKey(id string) string { return cache.Key(OwnerPostNamespace, id) }

// OwnerPostTag invalidates one owner post.
func OwnerPostTag(id string) string { return cache.Key(TagOwnerPost, id) }

// CommentsKey is the cache key of an idea's comment thread.
func CommentsKey(ideaID string) string { return cache.Key(CommentsNamespace, ideaID) }
