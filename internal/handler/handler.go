// Package handler はコマンドAPIのHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/jobnudge/internal/middleware"
	"github.com/hitoshi/jobnudge/internal/model"
)

// maxBodyBytes はリクエストボディの上限。
const maxBodyBytes = 64 << 10

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody はJSONボディをデコードする。失敗時は400を書き込みfalseを返す。
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "Could not parse the request body.",
			Category: "validation",
			Action:   "Send a JSON object with the documented fields.",
		})
		return false
	}
	return true
}

// userID はIdentityミドルウェアが注入した利用者IDを返す。
// 取得できない場合は400を書き込みfalseを返す。
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "MISSING_USER_ID",
			Message:  "The X-User-ID header is missing.",
			Category: "validation",
			Action:   "Send the recipient ID of the user in X-User-ID.",
		})
		return "", false
	}
	return id, true
}

// handleServiceError はサービス層から返されたエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	middleware.WriteServiceError(w, logger, err)
}
