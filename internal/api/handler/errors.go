package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/booking"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/idempotency"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/listing"
)

// toHTTPError はドメインエラーをHTTPステータスへ写像する
// 5種類のエラー分類（§エラー設計）はすべて型付きで呼び出し元へ返り、
// 黙殺されることはない
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, listing.ErrListingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, listing.ErrNoAvailability):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, booking.ErrHoldExpired):
		return echo.NewHTTPError(http.StatusGone, err.Error())

	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrHoldNotExpired):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, idempotency.ErrConflict),
		errors.Is(err, idempotency.ErrInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, booking.ErrContention):
		// 部分コミットは起きていないため、クライアントは安全に再試行できる
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())

	case errors.Is(err, booking.ErrNotAllowed):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, booking.ErrInvalidDateRange),
		errors.Is(err, booking.ErrInvalidTotalPrice),
		errors.Is(err, booking.ErrListingIDRequired),
		errors.Is(err, booking.ErrRequesterIDRequired),
		errors.Is(err, listing.ErrInvalidTotalSlots),
		errors.Is(err, listing.ErrOwnerIDRequired),
		errors.Is(err, listing.ErrTitleRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
