package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/listing"
	redisinfra "github.com/Suryateja-byte/Roomshare-sub011/internal/infrastructure/redis"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/logger"
)

// AvailabilityCache は空きスロット数のキャッシュインターフェース
type AvailabilityCache interface {
	GetAvailableSlots(ctx context.Context, listingID string) (int, error)
	SetAvailableSlots(ctx context.Context, listingID string, count int) error
	Invalidate(ctx context.Context, listingID string) error
}

// ListingService はリスティングの最小限の操作を提供する
// コンテンツCRUD全体は予約コアの対象外で、ここでは在庫スライスの
// 作成と読み取り専用クエリ面のみ扱う
type ListingService struct {
	listingRepo listing.Repository
	cache       AvailabilityCache
}

// NewListingService は新しい ListingService を作成する（cache は nil 可）
func NewListingService(listingRepo listing.Repository, cache AvailabilityCache) *ListingService {
	return &ListingService{listingRepo: listingRepo, cache: cache}
}

// CreateListingInput はリスティング作成の入力
type CreateListingInput struct {
	OwnerID    string
	Title      string
	TotalSlots int
}

// CreateListing は新しいリスティングを作成する
func (s *ListingService) CreateListing(ctx context.Context, input CreateListingInput) (*listing.Listing, error) {
	l := listing.NewListing(input.OwnerID, input.Title, input.TotalSlots)
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := s.listingRepo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// GetListing はIDからリスティングを取得する
func (s *ListingService) GetListing(ctx context.Context, id string) (*listing.Listing, error) {
	return s.listingRepo.GetByID(ctx, id)
}

// Availability は空きスロット数の読み取り結果
type Availability struct {
	ListingID      string
	AvailableSlots int
}

// GetAvailability は空きスロット数を返す（キャッシュ優先、外れたらDB）
// キャッシュの失敗はログのみでDBにフォールバックする
func (s *ListingService) GetAvailability(ctx context.Context, listingID string) (*Availability, error) {
	if s.cache != nil {
		cached, err := s.cache.GetAvailableSlots(ctx, listingID)
		if err == nil {
			return &Availability{ListingID: listingID, AvailableSlots: cached}, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("空きスロットキャッシュの取得に失敗",
				zap.String("listing_id", listingID),
				zap.Error(err),
			)
		}
	}

	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetAvailableSlots(ctx, listingID, l.AvailableSlots); err != nil {
			logger.Warn("空きスロットキャッシュの保存に失敗",
				zap.String("listing_id", listingID),
				zap.Error(err),
			)
		}
	}

	return &Availability{ListingID: l.ID, AvailableSlots: l.AvailableSlots}, nil
}
