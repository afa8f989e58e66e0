package handler

import (
	"context"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/application"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/booking"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/listing"
)

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateHold(ctx context.Context, input application.CreateHoldInput) (*booking.Booking, error)
	Accept(ctx context.Context, bookingID, callerID string) (*booking.Booking, error)
	Reject(ctx context.Context, bookingID, callerID string) (*booking.Booking, error)
	Cancel(ctx context.Context, bookingID, callerID string) (*booking.Booking, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetRequesterBookings(ctx context.Context, requesterID string, limit, offset int) ([]*booking.Booking, error)
	ExpireOverdueHolds(ctx context.Context, batchSize int) (int, error)
}

// ListingServiceInterface はリスティングサービスのインターフェース
type ListingServiceInterface interface {
	CreateListing(ctx context.Context, input application.CreateListingInput) (*listing.Listing, error)
	GetListing(ctx context.Context, id string) (*listing.Listing, error)
	GetAvailability(ctx context.Context, listingID string) (*application.Availability, error)
}

// IdempotencyExecutor は変更系操作を冪等性保護下で実行するインターフェース
type IdempotencyExecutor interface {
	Execute(ctx context.Context, key, callerID, operation, fingerprint string, fn application.OperationFunc) ([]byte, bool, error)
}
