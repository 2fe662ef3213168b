package server

import (
	"encoding/json"
	"net/http"

	"github.com/masteryflow/masteryflow/server/auth"
)

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Timezone string `json:"timezone"`
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token          string `json:"token"`
	RefreshToken   string `json:"refresh_token"`
	EmailConfirmed *bool  `json:"email_confirmed,omitempty"`
}

func handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, refreshToken, err := auth.SignUp(req.Username, req.Email, req.Password, req.Timezone)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, RefreshToken: refreshToken})
}

func handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, refreshToken, emailConfirmed, err := auth.SignIn(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:          token,
		RefreshToken:   refreshToken,
		EmailConfirmed: &emailConfirmed,
	})
}

func handleRefresh(w http.ResponseWriter, r *http.Request) {
	// jwtMiddleware injects the user id even off an expired auth token, which
	// is exactly the state a refreshing client is in.
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, refreshToken, err := auth.RefreshToken(userID.Hex(), req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, RefreshToken: refreshToken})
}

func handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := auth.ConfirmEmail(userID.Hex(), req.Token); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"confirmed": true})
}
