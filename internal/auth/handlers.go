package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nestars16/study-buddy/internal/db"
	"github.com/nestars16/study-buddy/internal/middleware"
	"github.com/nestars16/study-buddy/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// isUniqueViolation reports whether the insert lost to a row that already
// holds the value, per Postgres error class 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// normalizeEmail canonicalizes the address so "User@Example.com" and
// "user@example.com" hit the same uniqueness constraint.
func normalizeEmail(email string) (string, error) {
	email = norm.NFC.String(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", err
	}
	return strings.ToLower(email), nil
}

func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var user User

	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return
	}

	if user.Email == "" || user.Password == "" {
		http.Error(w, "Request doesn't contain all of the necessary fields", http.StatusBadRequest)
		return
	}

	email, err := normalizeEmail(user.Email)
	if err != nil {
		http.Error(w, "Invalid email address", http.StatusBadRequest)
		return
	}
	user.Email = email

	// Check if email is taken
	var existing User
	err = db.DB.First(&existing, "email = ?", user.Email).Error
	if err == nil {
		http.Error(w, "Email already in use", http.StatusConflict)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("user lookup failed: %v", err)
		http.Error(w, "Lookup Failed", http.StatusInternalServerError)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error hashing password", http.StatusInternalServerError)
		return
	}
	user.HashedPassword = string(hashed)
	user.UserID = uuid.New().String()

	// Registration logs the user straight in with a fresh session token.
	token := uuid.New().String()
	user.SessionID = &token

	// Clear user password
	user.Password = ""

	if err := db.DB.Create(&user).Error; err != nil {
		// Two concurrent registrations can both pass the lookup above; the
		// unique index settles it and the loser gets the same 409.
		if isUniqueViolation(err) {
			http.Error(w, "Email already in use", http.StatusConflict)
			return
		}
		log.Printf("user create failed: %v", err)
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, middleware.SessionCookie(token))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"user_id": user.UserID,
		"email":   user.Email,
	})
}

func LogInHandler(w http.ResponseWriter, r *http.Request) {
	var payload User

	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		http.Error(w, "Invalid Data", http.StatusBadRequest)
		return
	}

	email, err := normalizeEmail(payload.Email)
	if err != nil {
		// Same response as a wrong password; don't reveal which part failed.
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	var user User
	err = db.DB.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	} else if err != nil {
		log.Printf("user lookup failed: %v", err)
		http.Error(w, "Lookup Failed", http.StatusInternalServerError)
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(payload.Password))
	if err != nil {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	// Passwords matched; mint a fresh token. A token from a previous login
	// (or from registration) stops working right here.
	token := uuid.New().String()
	if err := db.DB.Model(&user).Update("session_id", token).Error; err != nil {
		log.Printf("session update failed: %v", err)
		http.Error(w, "Lookup Failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, middleware.SessionCookie(token))
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Login successful")
}

func LogOutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := utils.RequireUser(w, r)
	if !ok {
		return
	}

	// Null out exactly this user's session; nobody else is affected.
	err := db.DB.Model(&User{}).Where("user_id = ?", user.UserID).Update("session_id", nil).Error
	if err != nil {
		log.Printf("session clear failed: %v", err)
		http.Error(w, "Lookup Failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, middleware.ExpiredSessionCookie())
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Logout successful")
}

type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := utils.RequireUser(w, r)
	if !ok {
		return
	}

	var user User
	err := db.DB.First(&user, "user_id = ?", userCtx.UserID).Error
	if err != nil {
		http.Error(w, "Couldn't find user", http.StatusNotFound)
		return
	}

	response := MeResponse{
		UserID: user.UserID,
		Email:  user.Email,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
