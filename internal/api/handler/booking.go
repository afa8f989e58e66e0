package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/application"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/booking"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/idempotency"
)

const (
	// HeaderIdempotencyKey はクライアントがリトライを紐付けるためのキー
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotencyReplayed は保存済み結果を返したことを示す
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
	// HeaderUserID は呼び出し元のユーザーID（認証レイヤーが設定する前提）
	HeaderUserID = "X-User-ID"
)

// BookingHandler は予約関連のHTTPハンドラー
// 変更系エンドポイントはすべて冪等性コーディネーター経由で実行される
type BookingHandler struct {
	service BookingServiceInterface
	idem    IdempotencyExecutor
}

// NewBookingHandler は新しい BookingHandler を作成する
func NewBookingHandler(service BookingServiceInterface, idem IdempotencyExecutor) *BookingHandler {
	return &BookingHandler{service: service, idem: idem}
}

// CreateBookingRequest はホールド作成リクエスト
type CreateBookingRequest struct {
	ListingID  string    `json:"listing_id" validate:"required"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required"`
	TotalPrice int       `json:"total_price" validate:"gte=0"`
}

// BookingResponse は予約レスポンス
type BookingResponse struct {
	ID            string     `json:"id"`
	ListingID     string     `json:"listing_id"`
	RequesterID   string     `json:"requester_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	TotalPrice    int        `json:"total_price"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		ListingID:     b.ListingID,
		RequesterID:   b.RequesterID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		HoldExpiresAt: b.HoldExpiresAt,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// RegisterRoutes は予約関連のルートを登録する
func (h *BookingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/bookings", h.CreateHold)
	g.GET("/bookings", h.GetMyBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.POST("/bookings/:id/accept", h.Accept)
	g.POST("/bookings/:id/reject", h.Reject)
	g.POST("/bookings/:id/cancel", h.Cancel)
}

// CreateHold はスロットを1つ確保して pending 予約を作成する
// POST /api/v1/bookings
func (h *BookingHandler) CreateHold(c echo.Context) error {
	callerID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// フィンガープリントは正規化済みリクエストから計算する
	// 同一キーで異なるボディが来た場合に 409 で検出できる
	body, err := json.Marshal(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}

	return h.executeIdempotent(c, "booking.create_hold", callerID, idempotency.Fingerprint(body), http.StatusCreated,
		func(ctx context.Context) (*booking.Booking, error) {
			return h.service.CreateHold(ctx, application.CreateHoldInput{
				ListingID:   req.ListingID,
				RequesterID: callerID,
				StartDate:   req.StartDate,
				EndDate:     req.EndDate,
				TotalPrice:  req.TotalPrice,
			})
		})
}

// Accept はホールドを承認する（リスティングオーナーのみ）
// POST /api/v1/bookings/:id/accept
func (h *BookingHandler) Accept(c echo.Context) error {
	return h.transition(c, "booking.accept", h.service.Accept)
}

// Reject はホールドを拒否してスロットを解放する（リスティングオーナーのみ）
// POST /api/v1/bookings/:id/reject
func (h *BookingHandler) Reject(c echo.Context) error {
	return h.transition(c, "booking.reject", h.service.Reject)
}

// Cancel は予約をキャンセルする（リクエスターまたはオーナー）
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.transition(c, "booking.cancel", h.service.Cancel)
}

// transition はID指定の状態遷移エンドポイント共通処理
func (h *BookingHandler) transition(c echo.Context, operation string, fn func(ctx context.Context, bookingID, callerID string) (*booking.Booking, error)) error {
	callerID, err := requireUserID(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "予約IDが必要です")
	}

	return h.executeIdempotent(c, operation, callerID, idempotency.Fingerprint([]byte(id)), http.StatusOK,
		func(ctx context.Context) (*booking.Booking, error) {
			return fn(ctx, id, callerID)
		})
}

// GetBooking はIDから予約を取得する
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "予約IDが必要です")
	}

	b, err := h.service.GetBooking(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// GetMyBookings は呼び出し元の予約一覧を取得する
// GET /api/v1/bookings?limit=20&offset=0
func (h *BookingHandler) GetMyBookings(c echo.Context) error {
	callerID, err := requireUserID(c)
	if err != nil {
		return err
	}

	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	bookings, err := h.service.GetRequesterBookings(c.Request().Context(), callerID, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}
	return c.JSON(http.StatusOK, resp)
}

// executeIdempotent は変更系操作を冪等性保護下で実行し、結果をそのまま返す
// リプレイ時は保存済みペイロードを同一ステータスで返し、ヘッダーで明示する
func (h *BookingHandler) executeIdempotent(c echo.Context, operation, callerID, fingerprint string, status int, fn func(ctx context.Context) (*booking.Booking, error)) error {
	key := c.Request().Header.Get(HeaderIdempotencyKey)

	payload, replayed, err := h.idem.Execute(c.Request().Context(), key, callerID, operation, fingerprint,
		func(ctx context.Context) ([]byte, error) {
			b, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(toBookingResponse(b))
		})
	if err != nil {
		return toHTTPError(err)
	}

	if replayed {
		c.Response().Header().Set(HeaderIdempotencyReplayed, "true")
	}
	return c.JSONBlob(status, payload)
}

// requireUserID は呼び出し元のユーザーIDを取得する
func requireUserID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(HeaderUserID)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
