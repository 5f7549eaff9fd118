package services

import (
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/trulyexpense/backend/internal/config"
	"github.com/trulyexpense/backend/internal/mailer"
	"github.com/trulyexpense/backend/internal/middleware"
	"github.com/trulyexpense/backend/internal/models"
)

const (
	tokenPurposeActivate = "activate"
	tokenPurposeReset    = "reset"
)

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	mail      mailer.Publisher
	validator *ValidationHelper
	tokens    *config.TokenConfig
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30" example:"johndoe"`
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8" example:"password123"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"johndoe"`
	Password string `json:"password" validate:"required" example:"password123"`
}

// AuthResponse represents a successful login
type AuthResponse struct {
	Token string      `json:"token"` // Session token
	User  models.User `json:"user"`  // User information
}

func NewAuthService(db *sql.DB, redisClient *redis.Client, mail mailer.Publisher) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		mail:      mail,
		validator: NewValidationHelper(),
		tokens:    config.LoadTokenConfig(),
	}
}

// Register creates an inactive account and queues the activation email.
// @Summary Register a new user
// @Tags auth
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var taken bool
	err := s.db.QueryRow("SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)",
		req.Username, strings.ToLower(req.Email)).Scan(&taken)
	if err != nil {
		log.Printf("[AUTH] Availability check failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}
	if taken {
		SendErrorResponse(w, "Username or email already exists", http.StatusConflict, nil)
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	var userID int
	err = s.db.QueryRow("INSERT INTO users (username, email, password, is_active) VALUES ($1, $2, $3, FALSE) RETURNING id",
		req.Username, strings.ToLower(req.Email), hashedPassword).Scan(&userID)
	if err != nil {
		log.Printf("[AUTH] User creation failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] User created - ID: %d, Username: %s (inactive)", userID, req.Username)

	token, err := generateActionToken(userID, tokenPurposeActivate, s.tokens.ActivationTTL)
	if err != nil {
		log.Printf("[AUTH] Activation token generation failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	link := fmt.Sprintf("%s/api/v1/auth/activate/%s", viper.GetString("app.base_url"), token)
	body := fmt.Sprintf("Dear %s,\nPlease use the link below to activate your account:\n%s", req.Username, link)
	if err := s.mail.Publish(r.Context(), mailer.NewMessage(req.Email, "Activate your account", body)); err != nil {
		// Account exists either way; the queue failure is surfaced in logs
		// and mailer stats, and the user can request a fresh link.
		log.Printf("[AUTH] Failed to queue activation email for user %d: %v", userID, err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Account created successfully, check your email to activate it",
		"user_id": userID,
	})
}

// Activate marks the account behind a valid activation token as active.
// @Summary Activate account via emailed token
// @Tags auth
// @Router /auth/activate/{token} [get]
func (s *AuthService) Activate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	userID, _, err := parseActionToken(token, tokenPurposeActivate)
	if err != nil {
		log.Printf("[AUTH] Invalid activation token: %v", err)
		SendErrorResponse(w, "The activation link is invalid or has expired", http.StatusUnauthorized, nil)
		return
	}

	var isActive bool
	if err := s.db.QueryRow("SELECT is_active FROM users WHERE id = $1", userID).Scan(&isActive); err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[AUTH] Activation lookup failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to activate account", http.StatusInternalServerError, nil)
		}
		return
	}

	if isActive {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Account already activated, please log in"})
		return
	}

	if _, err := s.db.Exec("UPDATE users SET is_active = TRUE WHERE id = $1", userID); err != nil {
		log.Printf("[AUTH] Activation update failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to activate account", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Account activated for user %d", userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account activated successfully"})
}

// Login verifies credentials and mints a server-side session.
// @Summary Login user
// @Tags auth
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var user models.User
	var hashedPassword string
	err := s.db.QueryRow("SELECT id, username, email, password, is_active, created_at FROM users WHERE username = $1",
		req.Username).Scan(&user.ID, &user.Username, &user.Email, &hashedPassword, &user.IsActive, &user.CreatedAt)
	if err != nil {
		log.Printf("[AUTH] User not found: %s", req.Username)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for user: %s", req.Username)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !user.IsActive {
		log.Printf("[AUTH] Login rejected for inactive user %d", user.ID)
		SendErrorResponse(w, "Account is not active, please check your email", http.StatusForbidden, nil)
		return
	}

	if s.redis == nil {
		log.Printf("[AUTH] Login unavailable - no session store")
		SendErrorResponse(w, "Session store unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	sessionToken := uuid.NewString()
	key := middleware.SessionKeyPrefix + sessionToken
	if err := s.redis.Set(r.Context(), key, fmt.Sprintf("%d", user.ID), s.tokens.SessionTTL).Err(); err != nil {
		log.Printf("[AUTH] Failed to store session for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to create session", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for user %d", user.ID)
	writeJSON(w, http.StatusOK, AuthResponse{Token: sessionToken, User: user})
}

// Logout drops the session behind the bearer token.
// @Summary Logout user
// @Tags auth
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" && s.redis != nil {
		if err := s.redis.Del(r.Context(), middleware.SessionKeyPrefix+parts[1]).Err(); err != nil {
			log.Printf("[AUTH] Failed to drop session: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// ValidateEmail checks format and availability of an email address.
// @Summary Validate email
// @Tags auth
// @Router /auth/validate-email [post]
func (s *AuthService) ValidateEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}

	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateVar(req.Email, "required,email"); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"email_error": "Email is invalid"})
		return
	}

	var taken bool
	if err := s.db.QueryRow("SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", strings.ToLower(req.Email)).Scan(&taken); err != nil {
		log.Printf("[AUTH] Email availability check failed: %v", err)
		SendErrorResponse(w, "Failed to validate email", http.StatusInternalServerError, nil)
		return
	}
	if taken {
		writeJSON(w, http.StatusConflict, map[string]string{"email_error": "Sorry, this email is already taken. Please try another one"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"email_valid": true})
}

// ValidateUsername checks format and availability of a username.
// @Summary Validate username
// @Tags auth
// @Router /auth/validate-username [post]
func (s *AuthService) ValidateUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}

	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateVar(req.Username, "required,alphanum"); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"username_error": "Username should only contain alphanumeric characters"})
		return
	}

	var taken bool
	if err := s.db.QueryRow("SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", req.Username).Scan(&taken); err != nil {
		log.Printf("[AUTH] Username availability check failed: %v", err)
		SendErrorResponse(w, "Failed to validate username", http.StatusInternalServerError, nil)
		return
	}
	if taken {
		writeJSON(w, http.StatusConflict, map[string]string{"username_error": "Sorry, this username is already taken. Please try another one"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"username_valid": true})
}

// RequestPasswordReset queues a reset email for the account, if it exists.
// The response never reveals whether the address is registered.
// @Summary Request password reset
// @Tags auth
// @Router /auth/password-reset [post]
func (s *AuthService) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var userID int
	var username string
	err := s.db.QueryRow("SELECT id, username FROM users WHERE email = $1", strings.ToLower(req.Email)).Scan(&userID, &username)
	if err == nil {
		token, tokenErr := generateActionToken(userID, tokenPurposeReset, s.tokens.ResetTTL)
		if tokenErr != nil {
			log.Printf("[AUTH] Reset token generation failed for user %d: %v", userID, tokenErr)
		} else {
			link := fmt.Sprintf("%s/reset-password?token=%s", viper.GetString("app.base_url"), token)
			body := fmt.Sprintf("Dear %s,\nPlease use the link below to reset your password:\n%s", username, link)
			if pubErr := s.mail.Publish(r.Context(), mailer.NewMessage(req.Email, "Reset your password", body)); pubErr != nil {
				log.Printf("[AUTH] Failed to queue reset email for user %d: %v", userID, pubErr)
			}
		}
	} else if err != sql.ErrNoRows {
		log.Printf("[AUTH] Reset lookup failed: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "If the email is registered, a reset link has been sent"})
}

// ConfirmPasswordReset sets a new password behind a valid, unused reset token.
// @Summary Confirm password reset
// @Tags auth
// @Router /auth/password-reset/confirm [post]
func (s *AuthService) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}

	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	userID, jti, err := parseActionToken(req.Token, tokenPurposeReset)
	if err != nil {
		log.Printf("[AUTH] Invalid reset token: %v", err)
		SendErrorResponse(w, "The reset link is invalid or has expired", http.StatusUnauthorized, nil)
		return
	}

	// Reset tokens are single use: the first confirmation claims the jti.
	if s.redis != nil {
		key := fmt.Sprintf("reset_used:%s", jti)
		claimed, err := s.redis.SetNX(r.Context(), key, "1", s.tokens.ResetTTL).Result()
		if err != nil {
			log.Printf("[AUTH] Failed to claim reset token %s: %v", jti, err)
			SendErrorResponse(w, "Failed to reset password", http.StatusInternalServerError, nil)
			return
		}
		if !claimed {
			SendErrorResponse(w, "This reset link has already been used", http.StatusUnauthorized, nil)
			return
		}
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to reset password", http.StatusInternalServerError, nil)
		return
	}

	result, err := s.db.Exec("UPDATE users SET password = $1 WHERE id = $2", hashedPassword, userID)
	if err != nil {
		log.Printf("[AUTH] Password update failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to reset password", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[AUTH] Password reset for user %d", userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

// GetUserAccount returns the authenticated user's account details.
// @Summary Get user account details
// @Tags auth
// @Router /auth/account [get]
func (s *AuthService) GetUserAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var user models.User
	err := s.db.QueryRow("SELECT id, username, email, is_active, created_at FROM users WHERE id = $1",
		userID).Scan(&user.ID, &user.Username, &user.Email, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[AUTH] Failed to fetch user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch user details", http.StatusInternalServerError, nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// generateActionToken mints a signed, expiring token for an emailed account
// action (activation or reset). The jti lets reset confirmation enforce
// single use.
func generateActionToken(userID int, purpose string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"purpose": purpose,
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(ttl).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func parseActionToken(tokenString, purpose string) (int, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return 0, "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("unexpected claims type")
	}

	if claims["purpose"] != purpose {
		return 0, "", fmt.Errorf("token purpose mismatch")
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("missing user_id claim")
	}

	jti, _ := claims["jti"].(string)
	return int(rawID), jti, nil
}

// HashPassword derives an argon2id hash in salt$hash form.
func HashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
