package app

import (
	"errors"
	"testing"

	"bookbazaar/pkg/domain"
)

func TestSubmitKYCRequiresImage(t *testing.T) {
	a, mem := newTestApp(t)
	user := seedUser(t, mem, "kyc-1", domain.RoleUser, domain.KYCNone)

	if _, err := a.SubmitKYC(user, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitKYCMovesToPending(t *testing.T) {
	a, mem := newTestApp(t)
	user := seedUser(t, mem, "kyc-2", domain.RoleUser, domain.KYCNone)

	updated, err := a.SubmitKYC(user, []string{"https://img.example.com/id.jpg"})
	if err != nil {
		t.Fatalf("submit kyc: %v", err)
	}
	if updated.KYC.Status != domain.KYCPending {
		t.Fatalf("expected pending, got %q", updated.KYC.Status)
	}
	if len(updated.KYC.Images) != 1 {
		t.Fatalf("expected stored images, got %v", updated.KYC.Images)
	}
	if updated.KYC.SubmittedAt == nil {
		t.Fatalf("expected submittedAt to be set")
	}
}

func TestSubmitKYCGuardsPendingAndApproved(t *testing.T) {
	a, mem := newTestApp(t)
	pending := seedUser(t, mem, "kyc-pending", domain.RoleUser, domain.KYCPending)
	approved := seedUser(t, mem, "kyc-approved", domain.RoleUser, domain.KYCApproved)

	if _, err := a.SubmitKYC(pending, []string{"img"}); !errors.Is(err, ErrKYCAlreadyPending) {
		t.Fatalf("pending: expected ErrKYCAlreadyPending, got %v", err)
	}
	if _, err := a.SubmitKYC(approved, []string{"img"}); !errors.Is(err, ErrKYCAlreadyApproved) {
		t.Fatalf("approved: expected ErrKYCAlreadyApproved, got %v", err)
	}
}

func TestSubmitKYCGuardHoldsAgainstStaleRead(t *testing.T) {
	a, mem := newTestApp(t)
	user := seedUser(t, mem, "kyc-stale", domain.RoleUser, domain.KYCNone)

	if _, err := a.SubmitKYC(user, []string{"img"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// The caller still holds the pre-submit snapshot with status none.
	// The write-time check must reject it anyway.
	if _, err := a.SubmitKYC(user, []string{"img-a", "img-b"}); !errors.Is(err, ErrKYCAlreadyPending) {
		t.Fatalf("stale resubmit: expected ErrKYCAlreadyPending, got %v", err)
	}
	stored, ok, err := mem.GetUser(user.ID)
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if len(stored.KYC.Images) != 1 {
		t.Fatalf("failed submit must not mutate record, images=%v", stored.KYC.Images)
	}
}

func TestDecideKYCApproveAndReject(t *testing.T) {
	a, mem := newTestApp(t)
	admin := seedUser(t, mem, "kyc-admin", domain.RoleAdmin, domain.KYCNone)
	applicant := seedUser(t, mem, "kyc-applicant", domain.RoleUser, domain.KYCPending)

	approved, err := a.DecideKYC(admin, applicant.ID, domain.KYCApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.KYC.Status != domain.KYCApproved {
		t.Fatalf("expected approved, got %q", approved.KYC.Status)
	}
	// A second decision targets a record that is no longer pending.
	if _, err := a.DecideKYC(admin, applicant.ID, domain.KYCRejected); !errors.Is(err, ErrKYCInvalidTransition) {
		t.Fatalf("double decide: expected ErrKYCInvalidTransition, got %v", err)
	}
}

func TestDecideKYCValidation(t *testing.T) {
	a, mem := newTestApp(t)
	admin := seedUser(t, mem, "kyc-admin2", domain.RoleAdmin, domain.KYCNone)
	applicant := seedUser(t, mem, "kyc-applicant2", domain.RoleUser, domain.KYCPending)

	if _, err := a.DecideKYC(applicant, applicant.ID, domain.KYCApproved); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin: expected ErrForbidden, got %v", err)
	}
	if _, err := a.DecideKYC(admin, applicant.ID, domain.KYCNone); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad outcome: expected ErrValidation, got %v", err)
	}
	if _, err := a.DecideKYC(admin, "missing", domain.KYCApproved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: expected ErrNotFound, got %v", err)
	}
}

func TestRejectedUserMayResubmit(t *testing.T) {
	a, mem := newTestApp(t)
	admin := seedUser(t, mem, "kyc-admin3", domain.RoleAdmin, domain.KYCNone)
	applicant := seedUser(t, mem, "kyc-applicant3", domain.RoleUser, domain.KYCPending)

	if _, err := a.DecideKYC(admin, applicant.ID, domain.KYCRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	rejected, _, err := mem.GetUser(applicant.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	resubmitted, err := a.SubmitKYC(rejected, []string{"https://img.example.com/id2.jpg"})
	if err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
	if resubmitted.KYC.Status != domain.KYCPending {
		t.Fatalf("expected pending after resubmit, got %q", resubmitted.KYC.Status)
	}
}

func TestListPendingKYCIsAdminOnly(t *testing.T) {
	a, mem := newTestApp(t)
	admin := seedUser(t, mem, "kyc-admin4", domain.RoleAdmin, domain.KYCNone)
	seedUser(t, mem, "kyc-p1", domain.RoleUser, domain.KYCPending)
	seedUser(t, mem, "kyc-p2", domain.RoleUser, domain.KYCPending)
	plain := seedUser(t, mem, "kyc-plain", domain.RoleUser, domain.KYCNone)

	if _, err := a.ListPendingKYC(plain); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin: expected ErrForbidden, got %v", err)
	}
	users, err := a.ListPendingKYC(admin)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 pending users, got %d", len(users))
	}
}
