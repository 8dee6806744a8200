package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"drug_portfolio/portfolio/auth"
	"drug_portfolio/portfolio/schema"
	"drug_portfolio/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db    *gorm.DB
	jwt   *auth.JwtManager
	audit auth.AuditLogger
}

func (s *AuthService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)

		r.Get("/me", s.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.jwt.AuthMiddleware(s.audit)...)
		r.Use(auth.RequireRole(schema.RoleAdmin))

		r.Post("/register", s.Register)
	})

	return r
}

type userInfo struct {
	Id       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email,omitempty"`
}

func convertToUserInfo(user *schema.User) userInfo {
	return userInfo{
		Id:       user.Id,
		Username: user.Username,
		Role:     user.Role,
		FullName: user.FullName,
		Email:    user.Email,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userInfo `json:"user"`
}

func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(loginMetric)
	defer timer.ObserveDuration()

	var params loginRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Username == "" || params.Password == "" {
		utils.WriteJsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := schema.GetUserByUsername(params.Username, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			utils.WriteJsonError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		utils.WriteJsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(params.Password)); err != nil {
		utils.WriteJsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.jwt.CreateUserJwt(user)
	if err != nil {
		utils.WriteJsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	slog.Info("user logged in", "username", user.Username, "role", user.Role)

	utils.WriteJsonResponse(w, loginResponse{Token: token, User: convertToUserInfo(&user)})
}

func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r)
	if err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	user, err := schema.GetUser(identity.Id, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			utils.WriteJsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteJsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToUserInfo(&user))
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	var params registerRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Username == "" || params.Password == "" || params.Role == "" || params.FullName == "" {
		utils.WriteJsonError(w, "missing required fields: username, password, role, full_name", http.StatusBadRequest)
		return
	}

	if err := schema.CheckValidRole(params.Role); err != nil {
		utils.WriteJsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(params.Password), 10)
	if err != nil {
		slog.Error("error encrypting password", "error", err)
		utils.WriteJsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	newUser := schema.User{
		Id:           uuid.New(),
		Username:     params.Username,
		PasswordHash: hashedPwd,
		Role:         params.Role,
		FullName:     params.FullName,
		Email:        params.Email,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "username = ?", params.Username)
		if result.Error != nil {
			slog.Error("sql error checking for existing username", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(errors.New("username already exists"), http.StatusConflict)
		}

		result = txn.Create(&newUser)
		if result.Error != nil {
			slog.Error("sql error creating new user entry", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, fmt.Errorf("error creating user: %w", err))
		return
	}

	slog.Info("user registered", "username", newUser.Username, "role", newUser.Role)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, convertToUserInfo(&newUser))
}
