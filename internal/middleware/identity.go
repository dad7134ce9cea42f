// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/jobnudge/internal/model"
)

// UserIDHeader は操作対象の利用者IDを運ぶリクエストヘッダー。
// 利用者IDはメッセージングゲートウェイ上の宛先IDと同一である。
const UserIDHeader = "X-User-ID"

const maxUserIDLength = 64

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
// 利用者本人の認証ではなく、ホストを呼び出すフロントエンド（ボット等）の認証に使う。
func NewBearerAuthMiddleware(token string) func(next http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:     "UNAUTHORIZED",
					Message:  "Missing or invalid API token.",
					Category: "system",
					Action:   "Send Authorization: Bearer <API_TOKEN>.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewIdentityMiddleware はX-User-IDヘッダーから利用者IDを読み取り、
// リクエストコンテキストに注入する。ヘッダーがない場合は400を返す。
func NewIdentityMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" || len(userID) > maxUserIDLength {
				WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
					Code:     "MISSING_USER_ID",
					Message:  "The X-User-ID header is missing or too long.",
					Category: "validation",
					Action:   "Send the recipient ID of the user in X-User-ID.",
				})
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// Identityミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
