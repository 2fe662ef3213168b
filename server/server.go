package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/masteryflow/masteryflow/engine"
	"github.com/masteryflow/masteryflow/queue"
	"github.com/masteryflow/masteryflow/server/contextkey"
	cache "github.com/masteryflow/masteryflow/storage/cache"
	storage "github.com/masteryflow/masteryflow/storage/persistent"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Package-level dependencies, set once by Init before Start is called.
var (
	store             storage.StorageInterface
	eng               *engine.Engine
	statsCache        cache.CacheInterface
	notificationQueue *queue.Queue
	cronSecret        string
)

// Init wires the server's dependencies. It must be called before Start.
//
// It accepts five arguments:
// - s: The storage backend shared with the engine and auth service.
// - e: The mission engine that implements assembly and settlement.
// - c: The cache used for gamification stats.
// - q: The queue for outbound notifications.
// - secret: The bearer token that guards the cron endpoints.
func Init(s storage.StorageInterface, e *engine.Engine, c cache.CacheInterface, q *queue.Queue, secret string) {
	store = s
	eng = e
	statsCache = c
	notificationQueue = q
	cronSecret = secret
}

// jwtMiddleware is a middleware function that performs JWT validation.
//
// It accepts two arguments:
// - signingKey: A key used for validating the JWT signature.
// - next: The next http.Handler to be executed once the middleware has done its job.
//
// This function reads the JWT from the Authorization header of the HTTP request. If a JWT is present,
// it verifies the token's signature and checks if it has expired. If the JWT is valid, the function
// injects the user's ID extracted from the JWT into the request's context under contextkey.UserIDKey.
//
// If the JWT has expired but the claims can still be extracted, the function also injects the user's ID
// into the request's context, so the refresh endpoint can identify the caller. In case of any other
// error during JWT parsing, the function injects the error under contextkey.JwtErrorKey.
//
// The function does not stop the HTTP request processing and always calls the next http.Handler;
// it's up to the handlers to interpret the context and react accordingly.
func jwtMiddleware(signingKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			splitToken := strings.Split(authHeader, "Bearer ")
			if len(splitToken) == 2 {
				token, err := jwt.Parse(splitToken[1], func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
					}
					return []byte(signingKey), nil
				})
				if err != nil {
					if verr, ok := err.(*jwt.ValidationError); ok && verr.Errors == jwt.ValidationErrorExpired {
						if claims, ok := token.Claims.(jwt.MapClaims); ok {
							ctx := context.WithValue(r.Context(), contextkey.UserIDKey, claims["id"])
							r = r.WithContext(ctx)
						}
					} else {
						ctx := context.WithValue(r.Context(), contextkey.JwtErrorKey, err)
						r = r.WithContext(ctx)
					}
				} else if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
					ctx := context.WithValue(r.Context(), contextkey.UserIDKey, claims["id"])
					r = r.WithContext(ctx)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware is a middleware function that recovers from panics and provides a generic error message to the client.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %s\n", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// userIDFromRequest extracts the authenticated user's id from the request
// context populated by jwtMiddleware.
func userIDFromRequest(r *http.Request) (primitive.ObjectID, error) {
	raw, ok := r.Context().Value(contextkey.UserIDKey).(string)
	if !ok || raw == "" {
		return primitive.NilObjectID, errors.New("authentication required")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errors.New("authentication required")
	}
	return id, nil
}

// writeJSON serializes v to the response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

// writeError maps engine and storage errors onto HTTP status codes and writes
// a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound) || errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrMissionExists) || errors.Is(err, engine.ErrTaskAlreadyCompleted):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeUnauthorized writes a 401 response.
func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
}

// cronMiddleware guards the cron endpoints with a shared bearer secret.
func cronMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cronSecret == "" || r.Header.Get("Authorization") != "Bearer "+cronSecret {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// newRouter builds the REST routing table. Split out of Start so tests can
// exercise the full middleware and handler chain with httptest.
func newRouter(signingKey string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/auth/signup", handleSignUp).Methods("POST")
	r.HandleFunc("/auth/signin", handleSignIn).Methods("POST")
	r.HandleFunc("/auth/refresh", handleRefresh).Methods("POST")
	r.HandleFunc("/auth/confirm", handleConfirmEmail).Methods("POST")

	r.HandleFunc("/tracks", handleListTracks).Methods("GET")
	r.HandleFunc("/tracks", handleCreateTrack).Methods("POST")
	r.HandleFunc("/tracks/{id}", handleGetTrack).Methods("GET")
	r.HandleFunc("/tracks/{id}", handleUpdateTrack).Methods("PUT")
	r.HandleFunc("/tracks/{id}", handleDeleteTrack).Methods("DELETE")
	r.HandleFunc("/tracks/{id}/items", handleAddTrackItems).Methods("POST")

	r.HandleFunc("/missions/generate", handleGenerateMission).Methods("POST")
	r.HandleFunc("/missions/today", handleTodayMission).Methods("GET")
	r.HandleFunc("/missions/{id}/tasks/{taskId}/complete", handleCompleteTask).Methods("POST")
	r.HandleFunc("/missions/{id}/tasks/{taskId}/skip", handleSkipTask).Methods("POST")

	r.HandleFunc("/gamification/stats", handleGamificationStats).Methods("GET")

	cron := r.PathPrefix("/cron").Subrouter()
	cron.Use(cronMiddleware)
	cron.HandleFunc("/daily-missions", handleCronDailyMissions).Methods("GET")
	cron.HandleFunc("/expire-missions", handleCronExpireMissions).Methods("GET")
	cron.HandleFunc("/streak-warnings", handleCronStreakWarnings).Methods("GET")

	return recoveryMiddleware(jwtMiddleware(signingKey, r))
}

// Start initializes and starts the REST server at the given URL with the
// given JWT signing key. It blocks until the server exits.
func Start(serverURL, signingKey string) {
	routed := newRouter(signingKey)

	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})

	corsRouter := handlers.CORS(corsOrigins, corsMethods, corsHeaders)(routed)

	loggingRouter := handlers.LoggingHandler(os.Stdout, corsRouter)

	u, err := url.Parse(serverURL)
	if err != nil {
		panic(err)
	}

	server := &http.Server{
		Handler:      loggingRouter,
		Addr:         u.Host,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}
