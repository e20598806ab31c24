package apitest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"talentmatch-client/internal/model"
)

type contextKey string

const userContextKey contextKey = "apitest_user"

// IssueTokens mints a token pair for an existing user.
func (s *Server) IssueTokens(username string) (access string, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, exists := s.accounts[strings.ToLower(username)]
	if !exists {
		panic("apitest: unknown user " + username)
	}

	access, refresh, err := s.issueLocked(acct.user)
	if err != nil {
		panic(err)
	}
	return access, refresh
}

func (s *Server) issueLocked(user model.User) (string, string, error) {
	access, err := s.signLocked(user, "access", s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.signLocked(user, "refresh", s.refreshTTL)
	if err != nil {
		return "", "", err
	}

	s.refreshTokens[refresh] = strings.ToLower(user.Username)
	return access, refresh, nil
}

func (s *Server) signLocked(user model.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"token_type": tokenType,
		"user_id":    user.ID,
		"username":   user.Username,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		return "", err
	}

	if tokenType == "access" {
		s.accessTokens[token] = strings.ToLower(user.Username)
	}
	return token, nil
}

var errTokenNotValid = errors.New("token not valid")

// userForToken validates a signed token of the expected type that the server
// still considers live.
func (s *Server) userForToken(raw string, tokenType string) (model.User, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errTokenNotValid
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return model.User{}, errTokenNotValid
	}

	if typ, _ := claims["token_type"].(string); typ != tokenType {
		return model.User{}, errTokenNotValid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.accessTokens
	if tokenType == "refresh" {
		live = s.refreshTokens
	}
	username, exists := live[raw]
	if !exists {
		return model.User{}, errTokenNotValid
	}

	acct, exists := s.accounts[username]
	if !exists {
		return model.User{}, errTokenNotValid
	}

	return acct.user, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", true
	}
	return strings.TrimSpace(header[7:]), true
}

// requireAuth rejects requests without a live access token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r)
		if !present {
			writeDetail(w, http.StatusUnauthorized, "not_authenticated", "Authentication credentials were not provided.")
			return
		}

		user, err := s.userForToken(token, "access")
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "token_not_valid", "Given token not valid for any token type")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

// optionalAuth lets anonymous requests through but, like the real backend,
// still rejects a request that presents a dead token.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.userForToken(token, "access")
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "token_not_valid", "Given token not valid for any token type")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

func userFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userContextKey).(model.User)
	return user, ok
}
