package auth

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/masteryflow/masteryflow/lib/utils"
	"github.com/masteryflow/masteryflow/models"
	"github.com/masteryflow/masteryflow/queue"
	storage "github.com/masteryflow/masteryflow/storage/persistent"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// store is a global variable that holds an interface to the storage system (database).
var store storage.StorageInterface

// jwtSigningKey is a global variable that holds the key used for signing and verifying JWT tokens.
var jwtSigningKey string

// notificationQueue is a global variable that stores a reference to the messaging queue used to deliver emails.
var notificationQueue *queue.Queue

// InitAuth is a function for initializing the authentication system.
//
// It accepts three arguments:
// - s: The shared storage backend, also used by the mission engine.
// - signingKey: The key used to sign JWT tokens.
// - q: The queue through which confirmation emails are delivered.
func InitAuth(s storage.StorageInterface, signingKey string, q *queue.Queue) {
	store = s
	jwtSigningKey = signingKey
	notificationQueue = q
}

// CreateAuthToken is a function to create a signed JWT token for a user.
//
// It accepts one argument:
// - userId: The ID of the user to generate a token for.
//
// The function creates a JWT token with the user's ID and an expiration time.
// It returns a signed JWT token or an error if there was a problem during the token creation.
func CreateAuthToken(userId string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userId,
		"exp": time.Now().Add(time.Minute * 15).Unix(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString([]byte(jwtSigningKey))

	if err != nil {
		return "", errors.New("failed to create auth token")
	}

	return signedToken, nil
}

// CreateRefreshToken is a function to create a refresh JWT token for a user.
//
// It accepts one argument:
// - userId: The ID of the user to generate a refresh token for.
//
// The function creates a JWT refresh token with the user's ID and an expiration time.
// It returns a signed JWT refresh token or an error if there was a problem during the token creation.
func CreateRefreshToken(userId string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userId,
		"exp": time.Now().Add(time.Hour * 24 * 7).Unix(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString([]byte(jwtSigningKey))

	if err != nil {
		return "", errors.New("failed to create refresh token")
	}

	return signedToken, nil
}

// CreateTokens is a function to create both an auth token and a refresh token for a user.
//
// It accepts one argument:
// - userId: The ID of the user to generate tokens for.
//
// The function calls the CreateAuthToken and CreateRefreshToken functions to create a pair of tokens.
// It returns the pair of tokens or an error if there was a problem during the token creation.
func CreateTokens(userId string) (string, string, error) {
	authToken, authErr := CreateAuthToken(userId)
	if authErr != nil {
		return "", "", authErr
	}

	refreshToken, refreshErr := CreateRefreshToken(userId)
	if refreshErr != nil {
		return "", "", refreshErr
	}

	return authToken, refreshToken, nil
}

// SignIn is a function for authenticating a user.
//
// It accepts two arguments:
// - username: A string containing the username of the user attempting to log in.
// - password: A string containing the password of the user attempting to log in.
//
// This function performs several tasks:
// It checks if the length of the username is at least 2 characters.
// It finds the user in the database by their username.
// It compares the hashed password stored in the database with the password provided by the user.
// It calls CreateTokens function to generate a new pair of tokens for the user.
//
// The function returns an authentication token, a refresh token, a boolean indicating whether the user's email is confirmed,
// and an error if there was a problem with any step of the process.
func SignIn(username string, password string) (string, string, bool, error) {

	if len(username) < 2 {
		return "", "", false, errors.New("invalid username")
	}

	foundUser, err := store.FindUser(context.Background(), bson.M{"username": username})

	if err != nil {
		return "", "", false, errors.New("authentication failed")
	}

	err = bcrypt.CompareHashAndPassword([]byte(foundUser.PasswordHash), []byte(password))
	if err != nil {
		return "", "", false, errors.New("authentication failed")
	}

	token, refreshToken, err := CreateTokens(foundUser.ID.Hex())

	if err != nil {
		return "", "", false, err
	}

	return token, refreshToken, foundUser.EmailConfirmed, nil
}

// SignUp is a function for registering a new user.
//
// It accepts four arguments:
// - username: A string containing the username of the new user.
// - email: A string containing the email of the new user.
// - password: A string containing the password of the new user.
// - timezone: An IANA timezone name; empty means UTC. Mission dates and
//   deadlines are computed in this timezone.
//
// This function performs several tasks:
// It checks if the length of the username is at least 2 characters.
// It validates the email format, the password complexity, and the timezone.
// It checks if a user with the same email or username already exists in the database.
// It hashes the password provided by the user.
// It creates a new user in the database with the provided details.
// It generates a confirmation token and queues a confirmation email to the new user.
// It adds a confirmation record to the database, associated with the new user.
// It calls CreateTokens function to generate a new pair of tokens for the user.
//
// The function returns an authentication token, a refresh token, and an error if there was a problem with any step of the process.
func SignUp(username string, email string, password string, timezone string) (string, string, error) {

	if len(username) < 2 {
		return "", "", errors.New("invalid username")
	}

	if !utils.ValidateEmail(email) {
		return "", "", errors.New("invalid email format")
	}

	if !utils.ValidatePassword(password) {
		return "", "", errors.New("password must be at least 8 characters and contain both letters and numbers")
	}

	if !utils.ValidateTimezone(timezone) {
		return "", "", errors.New("invalid timezone")
	}

	foundUser, err := store.FindUser(context.Background(), bson.M{"email": email})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", "", err
	}

	if foundUser != nil {
		return "", "", errors.New("an account with this email already exists")
	}

	foundUser, err = store.FindUser(context.Background(), bson.M{"username": username})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", "", err
	}

	if foundUser != nil {
		return "", "", errors.New("username is taken")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	newUserID := primitive.NewObjectID()
	now := time.Now().UTC()

	user := &models.User{
		ID:             newUserID,
		Username:       username,
		Email:          email,
		EmailConfirmed: false,
		PasswordHash:   string(hashedPassword),
		Timezone:       timezone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = store.AddUser(context.Background(), user)
	if err != nil {
		return "", "", err
	}

	confirmationToken, err := generateConfirmationToken()
	if err != nil {
		return "", "", err
	}

	// Hash the confirmation token before storing it in the database
	hashedToken, err := bcrypt.GenerateFromPassword([]byte(confirmationToken), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	notification := &queue.NotificationMessage{
		Id:    newUserID.Hex(),
		Kind:  queue.KindConfirmation,
		To:    email,
		Token: confirmationToken,
	}

	if err := queue.PublishNotification(notification, notificationQueue); err != nil {
		return "", "", err
	}

	confirmation := &models.Confirmation{
		UserID:            newUserID,
		ConfirmationToken: string(hashedToken),
		ExpiresAt:         time.Now().Add(24 * time.Hour),
	}

	_, err = store.AddConfirmation(context.Background(), confirmation)
	if err != nil {
		return "", "", err
	}

	token, refreshToken, err := CreateTokens(newUserID.Hex())
	if err != nil {
		return "", "", err
	}

	return token, refreshToken, nil
}

// generateConfirmationToken produces a short random base32 token the user
// submits back to confirm their email address.
func generateConfirmationToken() (string, error) {
	tokenBytes := make([]byte, 4)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(tokenBytes)
	if len(token) > 6 {
		token = token[:6]
	}
	return token, nil
}

// RefreshToken is a function that validates a refresh token and generates a new pair of tokens if the refresh token is valid.
// It accepts two arguments:
// - userId: A string containing the id of the user who is requesting new tokens.
// - refreshToken: A string containing the refresh token to be validated.
//
// This function performs several tasks:
// It parses the refresh token and validates it.
// If the refresh token is valid and belongs to the given user, it generates a new pair of tokens.
// If the refresh token is expired or invalid, or does not belong to the given user, it returns an error.
//
// The function returns the new tokens (or empty strings if there was an error), and an error if there was a problem with any step of the process.
func RefreshToken(userId string, refreshToken string) (string, string, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSigningKey), nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			if ve.Errors == jwt.ValidationErrorExpired {
				return "", "", errors.New("expired refresh token")
			}
		}
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid refresh token")
	}

	if claims["id"] != userId {
		return "", "", errors.New("invalid refresh token")
	}

	return CreateTokens(userId)
}

// ConfirmEmail is a function that confirms a user's email address.
// It accepts two arguments:
// - userID: A string containing the id of the user whose email address is to be confirmed.
// - confirmationToken: A string containing the confirmation token for confirming the email address.
//
// This function performs several tasks:
// It fetches the confirmation record for the given user from the database.
// It checks if the confirmation token is expired or does not match the stored confirmation token.
// If the confirmation token is valid and not expired, it updates the user's record in the database to confirm their email address.
// It then deletes the confirmation record from the database.
//
// The function returns an error if there was a problem with any step of the process.
func ConfirmEmail(userID, confirmationToken string) error {
	var confirmError error

	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	foundConfirmation, err := store.FindConfirmation(context.Background(), bson.M{"user_id": objectID})
	if err != nil {
		return err
	}

	if foundConfirmation.ExpiresAt.Before(time.Now()) {
		confirmError = errors.New("confirmation token has expired")
	} else if err = bcrypt.CompareHashAndPassword([]byte(foundConfirmation.ConfirmationToken), []byte(confirmationToken)); err != nil {
		confirmError = errors.New("invalid confirmation token")
	} else {
		update := bson.M{
			"$set": bson.M{
				"email_confirmed": true,
			},
		}

		_, err = store.UpdateUser(context.Background(), bson.M{"_id": objectID}, update)
		if err != nil {
			return err
		}
	}

	// Remove the confirmation record whether or not the token matched; a
	// failed attempt requires a fresh signup flow rather than unlimited
	// guesses against the same token.
	_, err = store.DeleteConfirmation(context.Background(), bson.M{"_id": foundConfirmation.ID})
	if err != nil {
		return errors.New("error removing confirmation record")
	}

	return confirmError
}
