package application

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/config"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/booking"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/listing"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/transaction"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/clock"
)

// MockTx はtransaction.Txのモック
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTx) Rollback() error {
	return m.Called().Error(0)
}

// MockTxManager はtransaction.Managerのモック
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

func (m *MockTxManager) BeginSerializable(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockBookingRepository はbooking.Repositoryのモック
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	return m.Called(ctx, tx, b).Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByRequesterID(ctx context.Context, requesterID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, requesterID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	return m.Called(ctx, tx, b).Error(0)
}

func (m *MockBookingRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBookingRepository) CountByListingAndStatus(ctx context.Context, listingID string, statuses []booking.Status) (int, error) {
	args := m.Called(ctx, listingID, statuses)
	return args.Int(0), args.Error(1)
}

// MockListingRepository はlisting.Repositoryのモック
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockListingRepository) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*listing.Listing, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

// MockLedger はlisting.Ledgerのモック
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) ReserveSlot(ctx context.Context, tx transaction.Tx, listingID string) error {
	return m.Called(ctx, tx, listingID).Error(0)
}

func (m *MockLedger) ReleaseSlot(ctx context.Context, tx transaction.Tx, listingID string) error {
	return m.Called(ctx, tx, listingID).Error(0)
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var testRetry = config.TxRetryConfig{
	MaxAttempts: 3,
	BaseBackoff: time.Millisecond,
	MaxBackoff:  2 * time.Millisecond,
}

type serviceMocks struct {
	txManager   *MockTxManager
	tx          *MockTx
	bookingRepo *MockBookingRepository
	listingRepo *MockListingRepository
	ledger      *MockLedger
}

func newTestService(t *testing.T) (*BookingService, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		txManager:   new(MockTxManager),
		tx:          new(MockTx),
		bookingRepo: new(MockBookingRepository),
		listingRepo: new(MockListingRepository),
		ledger:      new(MockLedger),
	}
	svc := NewBookingService(
		m.txManager,
		m.bookingRepo,
		m.listingRepo,
		m.ledger,
		nil,
		nil,
		clock.NewFixed(testNow),
		nil,
		24*time.Hour,
		testRetry,
	)
	return svc, m
}

func testHoldInput() CreateHoldInput {
	return CreateHoldInput{
		ListingID:   "listing-1",
		RequesterID: "user-1",
		StartDate:   testNow.AddDate(0, 0, 7),
		EndDate:     testNow.AddDate(0, 0, 10),
		TotalPrice:  30000,
	}
}

func pendingHold(id string) *booking.Booking {
	b := booking.NewHold("listing-1", "user-1", testNow.AddDate(0, 0, 7), testNow.AddDate(0, 0, 10), 30000, testNow, 24*time.Hour)
	b.ID = id
	return b
}

func ownedListing() *listing.Listing {
	return &listing.Listing{
		ID:             "listing-1",
		OwnerID:        "owner-1",
		Title:          "渋谷の個室",
		TotalSlots:     2,
		AvailableSlots: 1,
	}
}

func TestBookingService_CreateHold(t *testing.T) {
	ctx := context.Background()

	t.Run("スロットを確保してpendingホールドを作成できる", func(t *testing.T) {
		svc, m := newTestService(t)

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.ledger.On("ReserveSlot", mock.Anything, m.tx, "listing-1").Return(nil)
		m.bookingRepo.On("Create", mock.Anything, m.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		m.tx.On("Commit").Return(nil)

		b, err := svc.CreateHold(ctx, testHoldInput())

		require.NoError(t, err)
		assert.Equal(t, booking.StatusPending, b.Status)
		require.NotNil(t, b.HoldExpiresAt)
		assert.Equal(t, testNow.Add(24*time.Hour), *b.HoldExpiresAt)
		m.ledger.AssertExpectations(t)
		m.bookingRepo.AssertExpectations(t)
	})

	t.Run("空きがない場合はNoAvailabilityで予約行は作られない", func(t *testing.T) {
		svc, m := newTestService(t)

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.ledger.On("ReserveSlot", mock.Anything, m.tx, "listing-1").Return(listing.ErrNoAvailability)
		m.tx.On("Rollback").Return(nil)

		b, err := svc.CreateHold(ctx, testHoldInput())

		assert.ErrorIs(t, err, listing.ErrNoAvailability)
		assert.Nil(t, b)
		m.bookingRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("シリアライゼーション競合は再試行して成功する", func(t *testing.T) {
		svc, m := newTestService(t)

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.ledger.On("ReserveSlot", mock.Anything, m.tx, "listing-1").
			Return(&pq.Error{Code: "40001"}).Once()
		m.ledger.On("ReserveSlot", mock.Anything, m.tx, "listing-1").Return(nil).Once()
		m.bookingRepo.On("Create", mock.Anything, m.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		m.tx.On("Rollback").Return(nil)
		m.tx.On("Commit").Return(nil)

		b, err := svc.CreateHold(ctx, testHoldInput())

		require.NoError(t, err)
		assert.Equal(t, booking.StatusPending, b.Status)
		m.ledger.AssertExpectations(t)
	})

	t.Run("再試行上限に達するとContention", func(t *testing.T) {
		svc, m := newTestService(t)

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.ledger.On("ReserveSlot", mock.Anything, m.tx, "listing-1").Return(&pq.Error{Code: "40001"})
		m.tx.On("Rollback").Return(nil)

		b, err := svc.CreateHold(ctx, testHoldInput())

		assert.ErrorIs(t, err, booking.ErrContention)
		assert.Nil(t, b)
		m.ledger.AssertNumberOfCalls(t, "ReserveSlot", testRetry.MaxAttempts)
	})
}

func TestBookingService_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("オーナーが期限内のホールドを承認できる", func(t *testing.T) {
		svc, m := newTestService(t)
		hold := pendingHold("booking-1")

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(hold, nil)
		m.listingRepo.On("GetByIDTx", mock.Anything, m.tx, "listing-1").Return(ownedListing(), nil)
		m.bookingRepo.On("Update", mock.Anything, m.tx, hold).Return(nil)
		m.tx.On("Commit").Return(nil)

		b, err := svc.Accept(ctx, "booking-1", "owner-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusAccepted, b.Status)
		assert.Nil(t, b.HoldExpiresAt)
		m.ledger.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything, mock.Anything)
		m.ledger.AssertNotCalled(t, "ReleaseSlot", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("オーナー以外の承認はNotAllowed", func(t *testing.T) {
		svc, m := newTestService(t)
		hold := pendingHold("booking-1")

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(hold, nil)
		m.listingRepo.On("GetByIDTx", mock.Anything, m.tx, "listing-1").Return(ownedListing(), nil)
		m.tx.On("Rollback").Return(nil)

		_, err := svc.Accept(ctx, "booking-1", "user-2")

		assert.ErrorIs(t, err, booking.ErrNotAllowed)
		m.bookingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("期限切れホールドの承認はHoldExpired", func(t *testing.T) {
		svc, m := newTestService(t)
		hold := pendingHold("booking-1")
		past := testNow.Add(-time.Minute)
		hold.HoldExpiresAt = &past

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(hold, nil)
		m.listingRepo.On("GetByIDTx", mock.Anything, m.tx, "listing-1").Return(ownedListing(), nil)
		m.tx.On("Rollback").Return(nil)

		_, err := svc.Accept(ctx, "booking-1", "owner-1")

		assert.ErrorIs(t, err, booking.ErrHoldExpired)
	})

	t.Run("存在しない予約はNotFound", func(t *testing.T) {
		svc, m := newTestService(t)

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "missing").Return(nil, booking.ErrBookingNotFound)
		m.tx.On("Rollback").Return(nil)

		_, err := svc.Accept(ctx, "missing", "owner-1")

		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})
}

func TestBookingService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("拒否は同一トランザクション内でスロットを解放する", func(t *testing.T) {
		svc, m := newTestService(t)
		hold := pendingHold("booking-1")

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(hold, nil)
		m.listingRepo.On("GetByIDTx", mock.Anything, m.tx, "listing-1").Return(ownedListing(), nil)
		m.ledger.On("ReleaseSlot", mock.Anything, m.tx, "listing-1").Return(nil)
		m.bookingRepo.On("Update", mock.Anything, m.tx, hold).Return(nil)
		m.tx.On("Commit").Return(nil)

		b, err := svc.Reject(ctx, "booking-1", "owner-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusRejected, b.Status)
		m.ledger.AssertExpectations(t)
	})

	t.Run("二重解放はログのみで遷移は成功する", func(t *testing.T) {
		svc, m := newTestService(t)
		hold := pendingHold("booking-1")

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(hold, nil)
		m.listingRepo.On("GetByIDTx", mock.Anything, m.tx, "listing-1").Return(ownedListing(), nil)
		m.ledger.On("ReleaseSlot", mock.Anything, m.tx, "listing-1").Return(listing.ErrDoubleRelease)
		m.bookingRepo.On("Update", mock.Anything, m.tx, hold).Return(nil)
		m.tx.On("Commit").Return(nil)

		b, err := svc.Reject(ctx, "booking-1", "owner-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusRejected, b.Status)
	})
}

func TestBookingService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("リクエスター本人がキャンセルできる", func(t *testing.T) {
		svc, m := newTestService(t)
		hold := pendingHold("booking-1")

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(hold, nil)
		m.listingRepo.On("GetByIDTx", mock.Anything, m.tx, "listing-1").Return(ownedListing(), nil)
		m.ledger.On("ReleaseSlot", mock.Anything, m.tx, "listing-1").Return(nil)
		m.bookingRepo.On("Update", mock.Anything, m.tx, hold).Return(nil)
		m.tx.On("Commit").Return(nil)

		b, err := svc.Cancel(ctx, "booking-1", "user-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, b.Status)
	})

	t.Run("オーナーもキャンセルできる", func(t *testing.T) {
		svc, m := newTestService(t)
		hold := pendingHold("booking-1")

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(hold, nil)
		m.listingRepo.On("GetByIDTx", mock.Anything, m.tx, "listing-1").Return(ownedListing(), nil)
		m.ledger.On("ReleaseSlot", mock.Anything, m.tx, "listing-1").Return(nil)
		m.bookingRepo.On("Update", mock.Anything, m.tx, hold).Return(nil)
		m.tx.On("Commit").Return(nil)

		b, err := svc.Cancel(ctx, "booking-1", "owner-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, b.Status)
	})

	t.Run("第三者のキャンセルはNotAllowed", func(t *testing.T) {
		svc, m := newTestService(t)
		hold := pendingHold("booking-1")

		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(hold, nil)
		m.listingRepo.On("GetByIDTx", mock.Anything, m.tx, "listing-1").Return(ownedListing(), nil)
		m.tx.On("Rollback").Return(nil)

		_, err := svc.Cancel(ctx, "booking-1", "user-999")

		assert.ErrorIs(t, err, booking.ErrNotAllowed)
	})
}

func TestBookingService_ExpireOverdueHolds(t *testing.T) {
	ctx := context.Background()

	t.Run("期限切れホールドをバッチでexpireする", func(t *testing.T) {
		svc, m := newTestService(t)
		expired := pendingHold("booking-1")
		past := testNow.Add(-time.Minute)
		expired.HoldExpiresAt = &past

		m.bookingRepo.On("ListExpiredPending", mock.Anything, testNow, 100).Return([]string{"booking-1"}, nil)
		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(expired, nil)
		m.ledger.On("ReleaseSlot", mock.Anything, m.tx, "listing-1").Return(nil)
		m.bookingRepo.On("Update", mock.Anything, m.tx, expired).Return(nil)
		m.tx.On("Commit").Return(nil)

		count, err := svc.ExpireOverdueHolds(ctx, 100)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, booking.StatusCancelled, expired.Status)
	})

	t.Run("取得後に別の遷移が先行した行はスキップして継続する", func(t *testing.T) {
		svc, m := newTestService(t)

		accepted := pendingHold("booking-1")
		require.NoError(t, accepted.Accept(testNow))

		expired := pendingHold("booking-2")
		past := testNow.Add(-time.Minute)
		expired.HoldExpiresAt = &past

		m.bookingRepo.On("ListExpiredPending", mock.Anything, testNow, 100).Return([]string{"booking-1", "booking-2"}, nil)
		m.txManager.On("BeginSerializable", mock.Anything).Return(m.tx, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-1").Return(accepted, nil)
		m.bookingRepo.On("GetByIDTx", mock.Anything, m.tx, "booking-2").Return(expired, nil)
		m.ledger.On("ReleaseSlot", mock.Anything, m.tx, "listing-1").Return(nil).Once()
		m.bookingRepo.On("Update", mock.Anything, m.tx, expired).Return(nil)
		m.tx.On("Rollback").Return(nil)
		m.tx.On("Commit").Return(nil)

		count, err := svc.ExpireOverdueHolds(ctx, 100)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
