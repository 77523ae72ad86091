package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "AuthMiddleware")

var (
	// ErrMissingToken は認証トークンが送られてこなかった場合のエラーです。
	ErrMissingToken = errors.New("authorization token is required")
	// ErrInvalidToken はトークンの検証に失敗した場合のエラーです。
	ErrInvalidToken = errors.New("invalid token")
)

// BypassUserHeader は認証バイパス時にユーザーIDを固定するためのヘッダーです。
const BypassUserHeader = "X-User-ID"

type UserIDKey struct{}

// GetUserIDFromContext retrieves the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey{}).(string)
	return userID, ok
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey{}, userID)
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Authenticator はHMAC署名されたJWTからユーザーIDを取り出します。
// bypass が有効な場合はトークンを検証せず、テスト用のユーザーIDを割り当てます。
type Authenticator struct {
	secret []byte
	bypass bool
}

// NewAuthenticator creates an Authenticator. secret が空で bypass も無効な場合、全ての認証は失敗します。
func NewAuthenticator(secret string, bypass bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), bypass: bypass}
}

// UserIDFromToken はトークンを検証し、'sub' クレームのユーザーIDを返します。
func (a *Authenticator) UserIDFromToken(tokenString string) (string, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		return "", ErrMissingToken
	}
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: JWT secret is not configured", ErrInvalidToken)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// アルゴリズムがHMACであることを確認
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user ID", ErrInvalidToken)
	}
	return userID, nil
}

// UserIDFromRequest はリクエストからユーザーIDを取得します。
// Authorization ヘッダーの Bearer トークン、なければ token クエリパラメータ（WebSocket用）を使います。
func (a *Authenticator) UserIDFromRequest(r *http.Request) (string, error) {
	if a.bypass {
		if userID := r.Header.Get(BypassUserHeader); userID != "" {
			return userID, nil
		}
		if userID := r.URL.Query().Get("user_id"); userID != "" {
			return userID, nil
		}
		// 毎回異なるユーザーとして扱う
		testUserID := uuid.NewString()
		log.Debugf("BYPASS_AUTH enabled, generated test user ID: %s", testUserID)
		return testUserID, nil
	}

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", fmt.Errorf("%w: Authorization header must be 'Bearer <token>'", ErrInvalidToken)
		}
		return a.UserIDFromToken(authHeader)
	}
	return a.UserIDFromToken(r.URL.Query().Get("token"))
}

// Middleware は有効なJWTを要求し、ユーザーIDをContextに設定して次のハンドラに渡します。
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.UserIDFromRequest(r)
		if err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Warn("認証に失敗しました")
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
