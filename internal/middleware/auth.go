package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"invitation-platform/internal/models"

	"github.com/gorilla/sessions"
)

type contextKey string

const (
	// ActorContextKey holds the resolved models.Actor for the request
	ActorContextKey contextKey = "actor"
)

// UserResolver looks up users for session authentication
type UserResolver interface {
	GetByID(id int) (*models.User, error)
}

// CollaboratorResolver authenticates collaborator access tokens
type CollaboratorResolver interface {
	ResolveCollaborator(token string) (*models.Collaborator, error)
}

// AuthMiddleware resolves the acting identity for each request: a session
// user, or a collaborator presenting a bearer access token.
//
// Sign-in itself lives in a separate identity service that shares the session
// cookie. Its contract with this middleware is session.Values["user_id"]: an
// int (or a numeric string or float from other serializers) naming a row in
// the users table. Anything else leaves the request anonymous.
type AuthMiddleware struct {
	users         UserResolver
	collaborators CollaboratorResolver
	store         sessions.Store
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(users UserResolver, collaborators CollaboratorResolver, store sessions.Store) *AuthMiddleware {
	return &AuthMiddleware{
		users:         users,
		collaborators: collaborators,
		store:         store,
	}
}

// LoadActor resolves the actor from the session or a collaborator bearer
// token and adds it to the request context. Requests without either continue
// with an empty actor.
func (m *AuthMiddleware) LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			collaborator, err := m.collaborators.ResolveCollaborator(token)
			if err == nil {
				ctx := context.WithValue(r.Context(), ActorContextKey, models.Actor{Collaborator: collaborator})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		session, err := m.store.Get(r, "session")
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, ok := session.Values["user_id"].(int)
		if !ok || userID == 0 {
			// Session storage may have converted the type
			switch v := session.Values["user_id"].(type) {
			case float64:
				userID = int(v)
			case string:
				userID, _ = strconv.Atoi(v)
			}
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}
		}

		user, err := m.users.GetByID(userID)
		if err != nil {
			// Stale session, clear it
			session.Values["user_id"] = nil
			session.Options.MaxAge = -1
			session.Save(r, w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ActorContextKey, models.Actor{User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests whose actor is not a signed-in user
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		if actor.User == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose actor is not an admin user
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		if !actor.IsAdmin() {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActor rejects requests with neither a user nor a collaborator identity
func (m *AuthMiddleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		if actor.User == nil && actor.Collaborator == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext returns the actor resolved for the request, or an empty
// actor when the request is anonymous.
func ActorFromContext(ctx context.Context) models.Actor {
	if actor, ok := ctx.Value(ActorContextKey).(models.Actor); ok {
		return actor
	}
	return models.Actor{}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
