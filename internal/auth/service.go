// Package auth registers users, checks credentials and manages login sessions.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/validate"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

var ErrInvalidCredentials = errors.New("invalid credentials")

type RegisterInput struct {
	Username      string
	FullName      string
	IDNumber      string
	AccountNumber string
	Password      string
}

// Credentials identify a login attempt. AccountNumber is only used for customers.
type Credentials struct {
	Username      string
	AccountNumber string
	Password      string
}

type Options struct {
	BcryptCost int
}

type Service struct {
	users     store.UserStore
	cost      int
	dummyHash []byte
}

func NewService(users store.UserStore, options Options) (*Service, error) {
	cost := options.BcryptCost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, err
	}
	return &Service{users: users, cost: cost, dummyHash: dummy}, nil
}

// Register validates the input and stores a new user with the given role.
// Any clash on username, account number or ID number yields store.ErrUserExists.
func (s *Service) Register(ctx context.Context, input RegisterInput, role models.Role) (models.User, error) {
	if !role.Valid() {
		return models.User{}, fmt.Errorf("invalid role %q", role)
	}
	input.Username = validate.Sanitize(input.Username)
	input.FullName = validate.Sanitize(input.FullName)
	input.IDNumber = validate.Sanitize(input.IDNumber)
	input.AccountNumber = validate.Sanitize(input.AccountNumber)

	if err := validate.Registration(input.Username, input.FullName, input.IDNumber, input.AccountNumber, input.Password); err != nil {
		return models.User{}, err
	}

	exists, err := s.users.UserExists(ctx, input.Username, input.AccountNumber, input.IDNumber)
	if err != nil {
		return models.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return models.User{}, store.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.CreateUser(ctx, models.User{
		Username:      input.Username,
		FullName:      input.FullName,
		IDNumber:      input.IDNumber,
		AccountNumber: input.AccountNumber,
		PasswordHash:  string(hash),
		Role:          role,
	})
}

// Authenticate returns the user matching creds and expectedRole. Unknown users
// and wrong passwords both return ErrInvalidCredentials after a bcrypt compare.
func (s *Service) Authenticate(ctx context.Context, creds Credentials, expectedRole models.Role) (models.User, error) {
	lookup := store.UserLookup{
		Username: validate.Sanitize(creds.Username),
		Role:     expectedRole,
	}
	if expectedRole == models.RoleCustomer {
		lookup.AccountNumber = validate.Sanitize(creds.AccountNumber)
		if lookup.AccountNumber == "" {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(creds.Password))
			return models.User{}, ErrInvalidCredentials
		}
	}
	if lookup.Username == "" || creds.Password == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(creds.Password))
		return models.User{}, ErrInvalidCredentials
	}

	user, err := s.users.FindUser(ctx, lookup)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(creds.Password))
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Users returns up to limit registered users.
func (s *Service) Users(ctx context.Context, limit int) ([]models.User, error) {
	return s.users.ListUsers(ctx, limit)
}

func (s *Service) User(ctx context.Context, userID string) (models.User, error) {
	return s.users.GetUser(ctx, userID)
}
