package services

import (
	"context"
	"testing"
	"time"

	"github.com/javascriptando/vips.lat-sub001/models"
)

func TestVelocityCountsOnlyWindow(t *testing.T) {
	db := newTestDB(t)
	svc := NewVelocityService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "")
	creator := createTestCreator(t, db, user.ID)

	for _, age := range []time.Duration{5 * time.Minute, 20 * time.Minute, 2 * time.Hour} {
		payment := models.Payment{
			UserID:    user.ID,
			CreatorID: creator.ID,
			Amount:    1000,
			Status:    models.PaymentStatusApproved,
		}
		payment.CreatedAt = time.Now().Add(-age)
		if err := db.Create(&payment).Error; err != nil {
			t.Fatalf("seed payment: %v", err)
		}
	}

	result, err := svc.Check(ctx, VelocityPayment, user.ID, 60, 3)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("count = %d, want 2 inside the hour", result.Count)
	}
	if !result.Allowed {
		t.Fatal("2 of 3 should be allowed")
	}
}

func TestVelocityBlocksAtLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewVelocityService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "")
	creator := createTestCreator(t, db, user.ID)
	for i := 0; i < 3; i++ {
		createTestPayment(t, db, user.ID, creator.ID, 1000)
	}

	result, err := svc.Check(ctx, VelocityPayment, user.ID, 60, 3)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatalf("count %d at limit %d should not be allowed", result.Count, result.Limit)
	}
	if result.Count != 3 {
		t.Fatalf("count = %d, want 3", result.Count)
	}

	// One slot below the limit still passes.
	under, err := svc.Check(ctx, VelocityPayment, user.ID, 60, 4)
	if err != nil {
		t.Fatalf("check under limit: %v", err)
	}
	if !under.Allowed {
		t.Fatalf("count %d under limit %d should be allowed", under.Count, under.Limit)
	}
}

func TestVelocityPayoutKindCountsCreatorPayouts(t *testing.T) {
	db := newTestDB(t)
	svc := NewVelocityService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "")
	creator := createTestCreator(t, db, user.ID)
	for i := 0; i < 2; i++ {
		payout := models.Payout{
			CreatorID: creator.ID,
			Amount:    2000,
			Fee:       500,
			NetAmount: 1500,
			Status:    models.PayoutStatusCompleted,
		}
		if err := db.Create(&payout).Error; err != nil {
			t.Fatalf("seed payout: %v", err)
		}
	}

	result, err := svc.Check(ctx, VelocityPayout, user.ID, 60, 3)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("count = %d, want 2", result.Count)
	}
}

func TestVelocityUnknownActorCountsZero(t *testing.T) {
	db := newTestDB(t)
	svc := NewVelocityService(db)

	result, err := svc.Check(context.Background(), VelocityPayout, 404, 60, 3)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Count != 0 || !result.Allowed {
		t.Fatalf("result = %+v, want zero count allowed", result)
	}
}

func TestVelocityValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewVelocityService(db)
	ctx := context.Background()

	if _, err := svc.Check(ctx, "login", 1, 60, 3); !IsKind(err, KindValidationFailed) {
		t.Errorf("unknown kind: got %v, want validation error", err)
	}
	if _, err := svc.Check(ctx, VelocityPayment, 1, 0, 3); !IsKind(err, KindValidationFailed) {
		t.Errorf("zero window: got %v, want validation error", err)
	}
	if _, err := svc.Check(ctx, VelocityPayment, 1, 60, -1); !IsKind(err, KindValidationFailed) {
		t.Errorf("negative limit: got %v, want validation error", err)
	}
}
