package department

import (
	"log/slog"

	"github.com/ariachen2020/timerecord/internal"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore resolves department accounts. The production store is
// config-backed; there is no department table.
type CredentialStore interface {
	ByUsername(username string) (*Credential, bool)
	ByCode(code string) (*Credential, bool)
}

type configStore struct {
	byUsername map[string]*Credential
	byCode     map[string]*Credential
}

// NewConfigStore builds a credential store from the configured department
// accounts.
func NewConfigStore(departments []internal.DepartmentConfig) CredentialStore {
	s := &configStore{
		byUsername: make(map[string]*Credential, len(departments)),
		byCode:     make(map[string]*Credential, len(departments)),
	}
	for _, d := range departments {
		cred := &Credential{
			Department: Department{
				Code:     d.Code,
				Name:     d.Name,
				Username: d.Username,
			},
			PasswordHash: d.PasswordHash,
		}
		s.byUsername[d.Username] = cred
		s.byCode[d.Code] = cred
	}
	return s
}

func (s *configStore) ByUsername(username string) (*Credential, bool) {
	c, ok := s.byUsername[username]
	return c, ok
}

func (s *configStore) ByCode(code string) (*Credential, bool) {
	c, ok := s.byCode[code]
	return c, ok
}

type Service struct {
	store  CredentialStore
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(store CredentialStore, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{store: store, tokens: tokens, logger: logger}
}

// Authenticate implements the collaborator contract: credentials in,
// (departmentCode, departmentName) embedded in tokens out.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	cred, ok := s.store.ByUsername(dto.Username)
	if !ok {
		// Compare against a dummy hash so unknown usernames cost the same
		// as wrong passwords.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0123456789012345678901"), []byte(dto.Password))
		return AuthTokens{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	return s.issueTokens(cred.Department)
}

// RefreshTokens validates a refresh token and issues a new token pair.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	cred, ok := s.store.ByCode(claims.DepartmentCode)
	if !ok {
		// Department was removed from config since the token was issued.
		return AuthTokens{}, ErrUnknownDepartment
	}

	return s.issueTokens(cred.Department)
}

// ValidateAccessToken resolves the acting department from a bearer token.
func (s *Service) ValidateAccessToken(tokenString string) (*Department, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if _, ok := s.store.ByCode(claims.DepartmentCode); !ok {
		return nil, ErrUnknownDepartment
	}
	return &Department{
		Code:     claims.DepartmentCode,
		Name:     claims.DepartmentName,
		Username: claims.Username,
	}, nil
}

func (s *Service) issueTokens(d Department) (AuthTokens, error) {
	accessToken, err := s.tokens.GenerateAccessToken(d)
	if err != nil {
		return AuthTokens{}, err
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(d)
	if err != nil {
		return AuthTokens{}, err
	}
	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Department:   d,
	}, nil
}
