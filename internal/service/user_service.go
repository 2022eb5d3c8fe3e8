package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dom "qrstudio/internal/domain"
	"qrstudio/internal/repo"
	"qrstudio/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordCost is the bcrypt cost for stored password hashes.
	PasswordCost   = 10
	MinPasswordLen = 6
)

var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateIdentity  = errors.New("email or username already registered")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// dummyHash keeps a failed lookup as slow as a failed password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("qrstudio-no-such-user"), PasswordCost)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email    string
	Name     string
	Username string
	Password string
}

// UserService handles user auth logic.
type UserService struct {
	repo repo.UserRepo
}

// NewUserService returns a new UserService.
func NewUserService(repo repo.UserRepo) *UserService {
	return &UserService{repo: repo}
}

func (in RegisterInput) validate() error {
	switch {
	case in.Email == "":
		return &ValidationError{Field: "email", Message: "is required"}
	case in.Name == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case in.Username == "":
		return &ValidationError{Field: "username", Message: "is required"}
	case in.Password == "":
		return &ValidationError{Field: "password", Message: "is required"}
	case len(in.Password) < MinPasswordLen:
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", MinPasswordLen)}
	case !strings.Contains(in.Email, "@"):
		return &ValidationError{Field: "email", Message: "is not an email address"}
	}
	return nil
}

// Register creates a new user with hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (dom.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	if err := in.validate(); err != nil {
		return dom.User{}, err
	}

	// The unique constraints decide; this only spares a bcrypt round.
	taken, err := s.repo.Exists(ctx, in.Email, in.Username)
	if err != nil {
		return dom.User{}, err
	}
	if taken {
		return dom.User{}, ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), PasswordCost)
	if err != nil {
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, dom.User{
		Email:        in.Email,
		Name:         in.Name,
		Username:     in.Username,
		PasswordHash: string(hash),
	})
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrDuplicateIdentity
		}
		return dom.User{}, err
	}
	return u, nil
}

// ValidateCredentials checks a username or email and password; returns
// the user if valid. Unknown login and wrong password fail identically.
func (s *UserService) ValidateCredentials(ctx context.Context, login, password string) (dom.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return dom.User{}, &ValidationError{Field: "username", Message: "username and password are required"}
	}
	u, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return dom.User{}, ErrInvalidCredentials
		}
		return dom.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return dom.User{}, ErrInvalidCredentials
	}
	return u, nil
}
