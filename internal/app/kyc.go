package app

import (
	"fmt"
	"time"

	"bookbazaar/pkg/domain"
)

// kycResubmittable are the statuses a new submission may start from.
var kycResubmittable = []domain.KYCStatus{domain.KYCNone, domain.KYCRejected}

// SubmitKYC records a verification request with at least one ID image and
// moves the user to pending. A request while a submission is pending or the
// user is already approved fails without mutating the record; the guard is
// re-checked at write time, not only against the read.
func (a *App) SubmitKYC(user domain.User, images []string) (domain.User, error) {
	if user.ID == "" {
		return domain.User{}, ErrUnauthorized
	}
	if len(images) == 0 {
		return domain.User{}, fmt.Errorf("%w: at least one ID image required", ErrValidation)
	}
	if err := kycSubmitGuard(user.KYC.Status); err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	ok, err := a.store.SubmitKYC(user.ID, domain.KYC{
		Status:      domain.KYCPending,
		Images:      images,
		SubmittedAt: &now,
	}, kycResubmittable)
	if err != nil {
		return domain.User{}, fmt.Errorf("submit kyc: %w", err)
	}
	if !ok {
		// The status changed between read and write. Re-read for the
		// precise guard error.
		current, found, err := a.store.GetUser(user.ID)
		if err != nil {
			return domain.User{}, fmt.Errorf("fetch user: %w", err)
		}
		if !found {
			return domain.User{}, ErrNotFound
		}
		if guardErr := kycSubmitGuard(current.KYC.Status); guardErr != nil {
			return domain.User{}, guardErr
		}
		return domain.User{}, ErrKYCAlreadyPending
	}

	updated, found, err := a.store.GetUser(user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	return updated, nil
}

func kycSubmitGuard(status domain.KYCStatus) error {
	switch status {
	case domain.KYCPending:
		return ErrKYCAlreadyPending
	case domain.KYCApproved:
		return ErrKYCAlreadyApproved
	}
	return nil
}

// DecideKYC approves or rejects a pending submission. Only admins may decide,
// and only pending records can be decided; the transition is a conditional
// write so a stale decision against an already-decided record fails instead
// of double-deciding.
func (a *App) DecideKYC(caller domain.User, userID string, outcome domain.KYCStatus) (domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return domain.User{}, ErrForbidden
	}
	if outcome != domain.KYCApproved && outcome != domain.KYCRejected {
		return domain.User{}, fmt.Errorf("%w: outcome must be approved or rejected", ErrValidation)
	}
	_, found, err := a.store.GetUser(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	ok, err := a.store.TransitionKYC(userID, domain.KYCPending, outcome)
	if err != nil {
		return domain.User{}, fmt.Errorf("decide kyc: %w", err)
	}
	if !ok {
		return domain.User{}, ErrKYCInvalidTransition
	}
	updated, found, err := a.store.GetUser(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	return updated, nil
}

// ListPendingKYC returns users awaiting a decision, oldest submission first.
func (a *App) ListPendingKYC(caller domain.User) ([]domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	users, err := a.store.ListUsersByKYCStatus(domain.KYCPending)
	if err != nil {
		return nil, fmt.Errorf("list pending kyc: %w", err)
	}
	return users, nil
}
