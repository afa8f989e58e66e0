package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/application"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/listing"
)

// ListingHandler はリスティング関連のHTTPハンドラー
type ListingHandler struct {
	service ListingServiceInterface
}

// NewListingHandler は新しい ListingHandler を作成する
func NewListingHandler(service ListingServiceInterface) *ListingHandler {
	return &ListingHandler{service: service}
}

// CreateListingRequest はリスティング作成リクエスト
type CreateListingRequest struct {
	Title      string `json:"title" validate:"required"`
	TotalSlots int    `json:"total_slots" validate:"required,gt=0"`
}

// ListingResponse はリスティングレスポンス
type ListingResponse struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	Title          string `json:"title"`
	TotalSlots     int    `json:"total_slots"`
	AvailableSlots int    `json:"available_slots"`
}

// AvailabilityResponse は空きスロット数レスポンス
type AvailabilityResponse struct {
	ListingID      string `json:"listing_id"`
	AvailableSlots int    `json:"available_slots"`
}

func toListingResponse(l *listing.Listing) ListingResponse {
	return ListingResponse{
		ID:             l.ID,
		OwnerID:        l.OwnerID,
		Title:          l.Title,
		TotalSlots:     l.TotalSlots,
		AvailableSlots: l.AvailableSlots,
	}
}

// RegisterRoutes はリスティング関連のルートを登録する
func (h *ListingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/listings", h.CreateListing)
	g.GET("/listings/:id", h.GetListing)
	g.GET("/listings/:id/availability", h.GetAvailability)
}

// CreateListing は新しいリスティングを作成する
// POST /api/v1/listings
func (h *ListingHandler) CreateListing(c echo.Context) error {
	ownerID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	l, err := h.service.CreateListing(c.Request().Context(), application.CreateListingInput{
		OwnerID:    ownerID,
		Title:      req.Title,
		TotalSlots: req.TotalSlots,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toListingResponse(l))
}

// GetListing はIDからリスティングを取得する
// GET /api/v1/listings/:id
func (h *ListingHandler) GetListing(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "リスティングIDが必要です")
	}

	l, err := h.service.GetListing(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toListingResponse(l))
}

// GetAvailability は空きスロット数を返す（キャッシュ優先）
// GET /api/v1/listings/:id/availability
func (h *ListingHandler) GetAvailability(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "リスティングIDが必要です")
	}

	a, err := h.service.GetAvailability(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{
		ListingID:      a.ListingID,
		AvailableSlots: a.AvailableSlots,
	})
}
