package lifecycle

import (
	"testing"

	"velora/internal/errs"
	"velora/internal/models"
)

func strptr(s string) *string { return &s }

func TestApplyCoupling(t *testing.T) {
	tests := []struct {
		name        string
		booking     models.Booking
		edit        Edit
		wantStatus  string
		wantPayment string
	}{
		{
			name:        "paid while pending coerces to confirmed",
			booking:     models.Booking{Status: models.StatusPending, PaymentStatus: models.PaymentPending},
			edit:        Edit{PaymentStatus: strptr(models.PaymentPaid)},
			wantStatus:  models.StatusConfirmed,
			wantPayment: models.PaymentPaid,
		},
		{
			name:        "paid preserves no_show",
			booking:     models.Booking{Status: models.StatusNoShow, PaymentStatus: models.PaymentPending},
			edit:        Edit{PaymentStatus: strptr(models.PaymentPaid)},
			wantStatus:  models.StatusNoShow,
			wantPayment: models.PaymentPaid,
		},
		{
			name:        "paid with simultaneous no_show keeps no_show",
			booking:     models.Booking{Status: models.StatusPending, PaymentStatus: models.PaymentPending},
			edit:        Edit{Status: strptr(models.StatusNoShow), PaymentStatus: strptr(models.PaymentPaid)},
			wantStatus:  models.StatusNoShow,
			wantPayment: models.PaymentPaid,
		},
		{
			name: "confirm with verified method on file",
			booking: models.Booking{
				Status: models.StatusPending, PaymentStatus: models.PaymentPending,
				PaymentMethod: "pm_1", MethodStatus: models.MethodSucceeded,
			},
			edit:        Edit{Status: strptr(models.StatusConfirmed)},
			wantStatus:  models.StatusConfirmed,
			wantPayment: models.PaymentPending,
		},
		{
			name:        "confirm via simultaneous payment",
			booking:     models.Booking{Status: models.StatusPending, PaymentStatus: models.PaymentPending},
			edit:        Edit{Status: strptr(models.StatusConfirmed), PaymentStatus: strptr(models.PaymentPaid)},
			wantStatus:  models.StatusConfirmed,
			wantPayment: models.PaymentPaid,
		},
		{
			name:        "retry after failed payment",
			booking:     models.Booking{Status: models.StatusNoShow, PaymentStatus: models.PaymentFailed},
			edit:        Edit{PaymentStatus: strptr(models.PaymentPaid)},
			wantStatus:  models.StatusNoShow,
			wantPayment: models.PaymentPaid,
		},
		{
			name:        "refund a paid booking",
			booking:     models.Booking{Status: models.StatusCompleted, PaymentStatus: models.PaymentPaid},
			edit:        Edit{PaymentStatus: strptr(models.PaymentRefunded)},
			wantStatus:  models.StatusCompleted,
			wantPayment: models.PaymentRefunded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.booking, tt.edit)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.PaymentStatus != tt.wantPayment {
				t.Errorf("payment status = %q, want %q", got.PaymentStatus, tt.wantPayment)
			}
			// Paid must never coexist with pending after an edit.
			if got.PaymentStatus == models.PaymentPaid && got.Status == models.StatusPending {
				t.Error("paid booking left in pending status")
			}
		})
	}
}

func TestApplyRejections(t *testing.T) {
	tests := []struct {
		name       string
		booking    models.Booking
		edit       Edit
		wantKind   string // conflict kind, empty for validation
		validation bool
	}{
		{
			name:       "confirm without method or payment",
			booking:    models.Booking{Status: models.StatusPending, PaymentStatus: models.PaymentPending},
			edit:       Edit{Status: strptr(models.StatusConfirmed)},
			validation: true,
		},
		{
			name: "confirm with unverified method",
			booking: models.Booking{
				Status: models.StatusPending, PaymentStatus: models.PaymentPending,
				PaymentMethod: "pm_1", MethodStatus: "requires_action",
			},
			edit:       Edit{Status: strptr(models.StatusConfirmed)},
			validation: true,
		},
		{
			name:     "second paid is already charged",
			booking:  models.Booking{Status: models.StatusConfirmed, PaymentStatus: models.PaymentPaid},
			edit:     Edit{PaymentStatus: strptr(models.PaymentPaid)},
			wantKind: errs.KindAlreadyCharged,
		},
		{
			name:       "refund an unpaid booking",
			booking:    models.Booking{Status: models.StatusPending, PaymentStatus: models.PaymentPending},
			edit:       Edit{PaymentStatus: strptr(models.PaymentRefunded)},
			validation: true,
		},
		{
			name:       "leave a cancelled booking",
			booking:    models.Booking{Status: models.StatusCancelled, PaymentStatus: models.PaymentPending},
			edit:       Edit{Status: strptr(models.StatusConfirmed)},
			validation: true,
		},
		{
			name:       "unknown status value",
			booking:    models.Booking{Status: models.StatusPending, PaymentStatus: models.PaymentPending},
			edit:       Edit{Status: strptr("parked")},
			validation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.booking, tt.edit)
			if err == nil {
				t.Fatal("Apply() expected an error")
			}
			if tt.validation && !errs.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
			if tt.wantKind != "" && !errs.IsConflict(err, tt.wantKind) {
				t.Errorf("expected %s conflict, got %v", tt.wantKind, err)
			}
			if got.Status != tt.booking.Status || got.PaymentStatus != tt.booking.PaymentStatus {
				t.Error("booking mutated on rejected edit")
			}
		})
	}
}

func TestApplyNoEdit(t *testing.T) {
	b := models.Booking{Status: models.StatusConfirmed, PaymentStatus: models.PaymentPending}
	got, err := Apply(b, Edit{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got != b {
		t.Error("empty edit changed the booking")
	}
}

func TestPayLockSequence(t *testing.T) {
	lock := NewPayLock()
	if lock.Unlocked() {
		t.Fatal("new lock must start locked")
	}
	if got := lock.Confirm(); got != LockConfirm1 {
		t.Fatalf("first confirm = %s, want %s", got, LockConfirm1)
	}
	if lock.Unlocked() {
		t.Fatal("one confirmation must not unlock")
	}
	if got := lock.Confirm(); got != LockUnlocked {
		t.Fatalf("second confirm = %s, want %s", got, LockUnlocked)
	}
	if !lock.Unlocked() {
		t.Fatal("two confirmations must unlock")
	}
	if got := lock.Confirm(); got != LockUnlocked {
		t.Fatalf("extra confirm = %s, want %s", got, LockUnlocked)
	}

	lock.Reset()
	if lock.State() != LockLocked {
		t.Fatalf("reset state = %s, want %s", lock.State(), LockLocked)
	}
}

func TestEditorPaymentLock(t *testing.T) {
	b := models.Booking{Status: models.StatusNoShow, PaymentStatus: models.PaymentPending}
	edit := Edit{PaymentStatus: strptr(models.PaymentPaid)}

	ed := NewEditor()
	if _, err := ed.Apply(b, edit); !errs.IsValidation(err) {
		t.Fatalf("locked editor accepted a manual payment edit: %v", err)
	}

	ed.Lock().Confirm()
	if _, err := ed.Apply(b, edit); !errs.IsValidation(err) {
		t.Fatalf("half-unlocked editor accepted a manual payment edit: %v", err)
	}

	ed.Lock().Confirm()
	got, err := ed.Apply(b, edit)
	if err != nil {
		t.Fatalf("unlocked editor rejected a valid edit: %v", err)
	}
	if got.PaymentStatus != models.PaymentPaid {
		t.Errorf("payment status = %q, want paid", got.PaymentStatus)
	}

	// Status-only edits never need the lock.
	ed2 := NewEditor()
	if _, err := ed2.Apply(b, Edit{Status: strptr(models.StatusNoShow)}); err != nil {
		t.Fatalf("status-only edit rejected: %v", err)
	}
}
