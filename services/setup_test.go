package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/database"
	"github.com/javascriptando/vips.lat-sub001/models"
	"github.com/javascriptando/vips.lat-sub001/providers"
)

var testSeq atomic.Int64

// newTestDB opens an isolated in-memory database per test. The pool is
// pinned to one connection; sqlite's :memory: mode gives every
// connection its own database otherwise.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func createTestUser(t *testing.T, db *gorm.DB, doc string) *models.User {
	t.Helper()
	n := testSeq.Add(1)
	user := models.User{
		Name:     fmt.Sprintf("User %d", n),
		Email:    fmt.Sprintf("user%d@test.local", n),
		CpfCnpj:  doc,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return &user
}

// createTestCreator returns a creator ready to withdraw: approved KYC
// and a PIX key in place.
func createTestCreator(t *testing.T, db *gorm.DB, userID uint) *models.Creator {
	t.Helper()
	n := testSeq.Add(1)
	creator := models.Creator{
		UserID:     userID,
		Handle:     fmt.Sprintf("creator%d", n),
		KycStatus:  models.KycStatusApproved,
		IsActive:   true,
		PixKey:     fmt.Sprintf("creator%d@pix.local", n),
		PixKeyType: models.PixKeyTypeEmail,
	}
	if err := db.Create(&creator).Error; err != nil {
		t.Fatalf("create test creator: %v", err)
	}
	return &creator
}

func createTestPayment(t *testing.T, db *gorm.DB, userID, creatorID uint, amount int64) *models.Payment {
	t.Helper()
	payment := models.Payment{
		UserID:    userID,
		CreatorID: creatorID,
		Amount:    amount,
		Status:    models.PaymentStatusApproved,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create test payment: %v", err)
	}
	return &payment
}

func fundCreator(t *testing.T, db *gorm.DB, creatorID uint, amount int64) {
	t.Helper()
	ledger := NewLedgerService(db, testLogger())
	if err := ledger.Credit(context.Background(), creatorID, amount); err != nil {
		t.Fatalf("fund creator %d: %v", creatorID, err)
	}
}

func availableBalance(t *testing.T, db *gorm.DB, creatorID uint) int64 {
	t.Helper()
	ledger := NewLedgerService(db, testLogger())
	balance, err := ledger.GetBalance(context.Background(), creatorID)
	if err != nil {
		t.Fatalf("read balance of creator %d: %v", creatorID, err)
	}
	return balance.Available
}

// mockGateway implements providers.SettlementGateway with overridable
// behavior. The zero value settles every transfer immediately.
type mockGateway struct {
	mu            sync.Mutex
	transferCalls int
	getCalls      int

	transferFn func(req providers.TransferRequest) (*providers.TransferResult, error)
	getFn      func(id string) (*providers.TransferResult, error)
}

func (m *mockGateway) Transfer(ctx context.Context, req providers.TransferRequest) (*providers.TransferResult, error) {
	m.mu.Lock()
	m.transferCalls++
	n := m.transferCalls
	m.mu.Unlock()
	if m.transferFn != nil {
		return m.transferFn(req)
	}
	return &providers.TransferResult{ID: fmt.Sprintf("tr-%d", n), Status: providers.TransferDone}, nil
}

func (m *mockGateway) GetTransfer(ctx context.Context, id string) (*providers.TransferResult, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if m.getFn != nil {
		return m.getFn(id)
	}
	return &providers.TransferResult{ID: id, Status: providers.TransferDone}, nil
}

func (m *mockGateway) transfers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transferCalls
}

// newPayoutService wires a payout service over the test database with
// the default policy and the given gateway.
func newPayoutService(db *gorm.DB, gw providers.SettlementGateway, cfg PayoutConfig) *PayoutService {
	logger := testLogger()
	flags := NewFraudFlagService(db, logger)
	ledger := NewLedgerService(db, logger)
	velocity := NewVelocityService(db)
	return NewPayoutService(db, ledger, velocity, flags, gw, cfg, logger)
}
