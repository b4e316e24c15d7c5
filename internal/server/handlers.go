package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/embld/contentcore/auth"
	"github.com/embld/contentcore/resources"
)

type idResponse struct {
	ID string `json:"id"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	var payload map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if payload == nil {
		return nil, errBadBody
	}
	return payload, nil
}

func (s *Server) listIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := s.catalog.ListIdeas(r.Context(), resources.IdeaFilter{
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (s *Server) getIdea(w http.ResponseWriter, r *http.Request) {
	idea, err := s.catalog.GetIdea(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

func (s *Server) createIdea(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, "", s.catalog.SaveIdea)
}

func (s *Server) updateIdea(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, r.PathValue("id"), s.catalog.SaveIdea)
}

func (s *Server) deleteIdea(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.catalog.DeleteIdea)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.catalog.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	payload, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	p := auth.PrincipalFromContext(r.Context())
	if err := s.catalog.UpdateProfile(r.Context(), p, id, payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.catalog.ListOwnerPosts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	post, err := s.catalog.GetOwnerPost(r.Context(), p, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, "", s.catalog.SaveOwnerPost)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, r.PathValue("id"), s.catalog.SaveOwnerPost)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.catalog.DeleteOwnerPost)
}

type saveFunc func(ctx context.Context, p auth.Principal, id string, payload map[string]any) (string, error)

// save answers 201 for a creation and 200 for an update.
func (s *Server) save(w http.ResponseWriter, r *http.Request, id string, fn saveFunc) {
	payload, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p := auth.PrincipalFromContext(r.Context())
	newID, err := fn(r.Context(), p, id, payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if id == "" {
		code = http.StatusCreated
	}
	writeJSON(w, code, idResponse{ID: newID})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, p auth.Principal, id string) error) {
	p := auth.PrincipalFromContext(r.Context())
	if err := fn(r.Context(), p, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.catalog.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	ideaID := r.PathValue("id")
	s.save(w, r, "", func(ctx context.Context, p auth.Principal, _ string, payload map[string]any) (string, error) {
		return s.catalog.AddComment(ctx, p, ideaID, payload)
	})
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	ideaID := r.PathValue("id")
	s.save(w, r, r.PathValue("commentID"), func(ctx context.Context, p auth.Principal, id string, payload map[string]any) (string, error) {
		return id, s.catalog.UpdateComment(ctx, p, ideaID, id, payload)
	})
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if err := s.catalog.DeleteComment(r.Context(), p, r.PathValue("id"), r.PathValue("commentID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reactionFunc func(ctx context.Context, p auth.Principal, id string) (resources.ReactionState, error)

// reaction serves a read or toggle of a want, like or save on the {id} target.
func (s *Server) reaction(fn reactionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFromContext(r.Context())
		state, err := fn(r.Context(), p, r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}
