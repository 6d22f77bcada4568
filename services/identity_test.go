package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/models"
)

func TestValidCPF(t *testing.T) {
	cases := []struct {
		doc   string
		valid bool
	}{
		{"111.444.777-35", true},
		{"11144477735", true},
		{"529.982.247-25", true},
		{"111.444.777-36", false}, // wrong check digit
		{"111.111.111-11", false}, // repeated digits pass the checksum, still rejected
		{"123", false},
		{"", false},
		{"111444777350", false}, // 12 digits
	}
	for _, tc := range cases {
		if got := ValidCPF(tc.doc); got != tc.valid {
			t.Errorf("ValidCPF(%q) = %v, want %v", tc.doc, got, tc.valid)
		}
	}
}

func TestValidCNPJ(t *testing.T) {
	cases := []struct {
		doc   string
		valid bool
	}{
		{"11.222.333/0001-81", true},
		{"11222333000181", true},
		{"11.222.333/0001-82", false},
		{"11.111.111/1111-11", false},
		{"11222333", false},
	}
	for _, tc := range cases {
		if got := ValidCNPJ(tc.doc); got != tc.valid {
			t.Errorf("ValidCNPJ(%q) = %v, want %v", tc.doc, got, tc.valid)
		}
	}
}

func TestValidDocumentDispatchesOnLength(t *testing.T) {
	if !ValidDocument("111.444.777-35") {
		t.Error("11-digit document should validate as CPF")
	}
	if !ValidDocument("11.222.333/0001-81") {
		t.Error("14-digit document should validate as CNPJ")
	}
	if ValidDocument("1234567890") {
		t.Error("10-digit document should never validate")
	}
}

func newIdentityService(db *gorm.DB) (*IdentityService, *FraudFlagService) {
	logger := testLogger()
	flags := NewFraudFlagService(db, logger)
	return NewIdentityService(db, flags, logger), flags
}

func TestFindDuplicateAcrossFormatting(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newIdentityService(db)
	ctx := context.Background()

	holder := createTestUser(t, db, "111.444.777-35")
	requester := createTestUser(t, db, "")

	match, err := svc.FindDuplicate(ctx, requester.ID, "11144477735")
	if err != nil {
		t.Fatalf("find duplicate: %v", err)
	}
	if match == nil {
		t.Fatal("expected a conflict, got none")
	}
	if match.OwnerType != "user" || match.OwnerID != holder.ID {
		t.Fatalf("conflict = %+v, want user %d", match, holder.ID)
	}

	var flags []models.FraudFlag
	if err := db.Where("type = ?", models.FraudFlagDuplicateIdentity).Find(&flags).Error; err != nil {
		t.Fatalf("load flags: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("%d duplicate identity flags, want 1", len(flags))
	}
	if flags[0].UserID == nil || *flags[0].UserID != requester.ID {
		t.Fatalf("flag targets %v, want requester %d", flags[0].UserID, requester.ID)
	}
}

func TestFindDuplicateIgnoresSelf(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newIdentityService(db)

	owner := createTestUser(t, db, "111.444.777-35")
	match, err := svc.FindDuplicate(context.Background(), owner.ID, "111.444.777-35")
	if err != nil {
		t.Fatalf("find duplicate: %v", err)
	}
	if match != nil {
		t.Fatalf("own document reported as conflict: %+v", match)
	}
}

func TestFindDuplicateRejectsMalformed(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newIdentityService(db)

	_, err := svc.FindDuplicate(context.Background(), 1, "111.111.111-11")
	if !IsKind(err, KindValidationFailed) {
		t.Fatalf("malformed document: got %v, want validation error", err)
	}
}

func TestFindDuplicateMatchesCreatorProfile(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newIdentityService(db)
	ctx := context.Background()

	holder := createTestUser(t, db, "")
	creator := createTestCreator(t, db, holder.ID)
	if err := db.Model(creator).Update("cpf_cnpj", "11.222.333/0001-81").Error; err != nil {
		t.Fatalf("set creator document: %v", err)
	}

	requester := createTestUser(t, db, "")
	match, err := svc.FindDuplicate(ctx, requester.ID, "11222333000181")
	if err != nil {
		t.Fatalf("find duplicate: %v", err)
	}
	if match == nil || match.OwnerType != "creator" || match.OwnerID != creator.ID {
		t.Fatalf("conflict = %+v, want creator %d", match, creator.ID)
	}

	// The holder checking their own document must not conflict with
	// their own creator profile.
	selfMatch, err := svc.FindDuplicate(ctx, holder.ID, "11222333000181")
	if err != nil {
		t.Fatalf("self check: %v", err)
	}
	if selfMatch != nil {
		t.Fatalf("own creator profile reported as conflict: %+v", selfMatch)
	}
}

func TestFingerprintHashIsStable(t *testing.T) {
	sig := DeviceSignals{
		UserAgent:        "Mozilla/5.0",
		ScreenResolution: "1920x1080",
		Timezone:         "America/Sao_Paulo",
		Language:         "pt-BR",
		IPAddress:        "200.100.50.25",
	}
	if FingerprintHash(sig) != FingerprintHash(sig) {
		t.Fatal("hash not stable for identical signals")
	}
	other := sig
	other.IPAddress = "200.100.50.26"
	if FingerprintHash(sig) == FingerprintHash(other) {
		t.Fatal("different signals produced the same hash")
	}
	if len(FingerprintHash(sig)) != 64 {
		t.Fatalf("hash length %d, want 64 hex chars", len(FingerprintHash(sig)))
	}
}

func TestRecordFingerprintUpsertsPerDevice(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newIdentityService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "")
	sig := DeviceSignals{UserAgent: "Mozilla/5.0", IPAddress: "10.0.0.1"}

	first, err := svc.RecordFingerprint(ctx, user.ID, sig)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	second, err := svc.RecordFingerprint(ctx, user.ID, sig)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("repeat visit created a new row: %d then %d", first.ID, second.ID)
	}

	var count int64
	db.Model(&models.DeviceFingerprint{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("%d rows for one device, want 1", count)
	}
	if !second.LastSeenAt.After(first.FirstSeenAt) && !second.LastSeenAt.Equal(first.FirstSeenAt) {
		t.Fatal("last_seen_at went backwards")
	}
}

func TestSharedDeviceRaisesFlag(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newIdentityService(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "")
	bob := createTestUser(t, db, "")
	sig := DeviceSignals{UserAgent: "Mozilla/5.0", IPAddress: "10.0.0.1"}

	if _, err := svc.RecordFingerprint(ctx, alice.ID, sig); err != nil {
		t.Fatalf("record for first user: %v", err)
	}
	if _, err := svc.RecordFingerprint(ctx, bob.ID, sig); err != nil {
		t.Fatalf("record for second user: %v", err)
	}

	var flags []models.FraudFlag
	db.Where("type = ?", models.FraudFlagDeviceFingerprint).Find(&flags)
	if len(flags) != 1 {
		t.Fatalf("%d device flags, want 1", len(flags))
	}
	if flags[0].Severity != 3 {
		t.Fatalf("device flag severity %d, want 3", flags[0].Severity)
	}
	if flags[0].UserID == nil || *flags[0].UserID != bob.ID {
		t.Fatalf("flag targets %v, want the second user %d", flags[0].UserID, bob.ID)
	}
}

func TestRecordFingerprintRequiresSignals(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newIdentityService(db)

	user := createTestUser(t, db, "")
	_, err := svc.RecordFingerprint(context.Background(), user.ID, DeviceSignals{})
	if !IsKind(err, KindValidationFailed) {
		t.Fatalf("empty signals: got %v, want validation error", err)
	}
}

func TestRecordFingerprintUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newIdentityService(db)

	sig := DeviceSignals{UserAgent: "Mozilla/5.0", IPAddress: "10.0.0.1"}
	_, err := svc.RecordFingerprint(context.Background(), 9999, sig)
	if !IsKind(err, KindNotFound) {
		t.Fatalf("unknown user: got %v, want not found", err)
	}
}
