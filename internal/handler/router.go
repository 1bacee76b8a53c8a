package handler

import (
	"net/http"

	"postline-server/internal/middleware"
	"postline-server/pkg/response"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Post      *PostHandler
	WebSocket *WebSocketHandler
}

// RegisterRoutes mounts the API under /api/v1. authLimit wraps the login and
// refresh endpoints.
func RegisterRoutes(r *mux.Router, h Handlers, session *middleware.SessionMiddleware, authLimit func(http.Handler) http.Handler) {
	required := func(fn http.HandlerFunc) http.Handler { return session.Required(fn) }
	optional := func(fn http.HandlerFunc) http.Handler { return session.Optional(fn) }

	api := r.PathPrefix("/api/v1").Subrouter()

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("/register", h.Auth.Register).Methods("POST", "OPTIONS")
	users.Handle("/login", authLimit(http.HandlerFunc(h.Auth.Login))).Methods("POST", "OPTIONS")
	users.Handle("/refresh", authLimit(http.HandlerFunc(h.Auth.Refresh))).Methods("POST", "OPTIONS")
	users.Handle("/logout", required(h.Auth.Logout)).Methods("POST", "OPTIONS")
	users.Handle("/delete", required(h.Auth.DeleteAccount)).Methods("DELETE", "OPTIONS")
	users.Handle("/current", required(h.User.Current)).Methods("GET", "OPTIONS")
	users.Handle("/update-account", required(h.User.UpdateAccount)).Methods("PATCH", "OPTIONS")
	users.Handle("/update-channel", required(h.User.UpdateChannel)).Methods("PATCH", "OPTIONS")
	users.Handle("/update-password", required(h.User.UpdatePassword)).Methods("PATCH", "OPTIONS")
	users.Handle("/update-avatar", required(h.User.UpdateAvatar)).Methods("PATCH", "OPTIONS")
	users.Handle("/update-cover-image", required(h.User.UpdateCoverImage)).Methods("PATCH", "OPTIONS")
	users.Handle("/channel/{username}", optional(h.User.Channel)).Methods("GET", "OPTIONS")
	users.Handle("/history", required(h.User.History)).Methods("GET", "OPTIONS")

	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("/all", h.Post.Feed).Methods("GET", "OPTIONS")
	posts.Handle("/channel/{channelId}", optional(h.Post.ChannelPosts)).Methods("GET", "OPTIONS")
	posts.Handle("/post/{postId}", optional(h.Post.Get)).Methods("GET", "OPTIONS")
	posts.Handle("/add", required(h.Post.Add)).Methods("POST", "OPTIONS")
	posts.Handle("/delete/{postId}", required(h.Post.Delete)).Methods("DELETE", "OPTIONS")
	posts.Handle("/update-details/{postId}", required(h.Post.UpdateDetails)).Methods("PATCH", "OPTIONS")
	posts.Handle("/update-image/{postId}", required(h.Post.UpdateImage)).Methods("PATCH", "OPTIONS")
	posts.Handle("/toggle-visibility/{postId}", required(h.Post.ToggleVisibility)).Methods("PATCH", "OPTIONS")
	posts.Handle("/saved", required(h.Post.Saved)).Methods("GET", "OPTIONS")
	posts.Handle("/liked", required(h.Post.Liked)).Methods("GET", "OPTIONS")
	posts.Handle("/toggle-save/{postId}", required(h.Post.ToggleSave)).Methods("POST", "OPTIONS")
	posts.Handle("/toggle-like/{postId}", required(h.Post.ToggleLike)).Methods("POST", "OPTIONS")

	if h.WebSocket != nil {
		r.Handle("/ws", optional(h.WebSocket.HandleConnection))
	}

	r.HandleFunc("/health", Health).Methods("GET")
}

func Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": "postline-server",
	})
}
