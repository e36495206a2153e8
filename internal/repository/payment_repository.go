package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
	"github.com/Pingpayio/ping-checkout-sub000/internal/observability"
)

var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrPaymentFinalized = errors.New("payment already finalized")
)

type PaymentRepository interface {
	FindByID(ctx context.Context, merchantID, id string) (*domain.Payment, error)
	FindByIdempotencyKey(ctx context.Context, merchantID, key string) (*domain.Payment, error)
	// CreatePending inserts a new pending payment. If another request won the
	// race on (merchant_id, idempotency_key), the stored winner is returned
	// with created=false and nothing is inserted.
	CreatePending(ctx context.Context, payment *domain.Payment) (*domain.Payment, bool, error)
	// Finalize moves a pending payment into a terminal status. The update is
	// conditional on the current status still being pending; a second
	// finalizer gets ErrPaymentFinalized and the stored row stays untouched.
	Finalize(ctx context.Context, merchantID, id string, status domain.PaymentStatus, refs []domain.SettlementRef) (*domain.Payment, error)
}

type GormPaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, merchantID, id string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).Where("id = ? AND merchant_id = ?", id, merchantID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "payment", "find_by_id", "not_found")
			return nil, ErrPaymentNotFound
		}
		observability.RecordRepositoryOperation(ctx, "payment", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "find_by_id", "success")
	return &payment, nil
}

func (r *GormPaymentRepository) FindByIdempotencyKey(ctx context.Context, merchantID, key string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND idempotency_key = ?", merchantID, key).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "payment", "find_by_idem_key", "not_found")
			return nil, ErrPaymentNotFound
		}
		observability.RecordRepositoryOperation(ctx, "payment", "find_by_idem_key", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "find_by_idem_key", "success")
	return &payment, nil
}

func (r *GormPaymentRepository) CreatePending(ctx context.Context, payment *domain.Payment) (*domain.Payment, bool, error) {
	payment.Status = domain.PaymentStatusPending
	err := r.db.WithContext(ctx).Create(payment).Error
	if err != nil {
		if isUniqueViolation(err) {
			existing, findErr := r.FindByIdempotencyKey(ctx, payment.MerchantID, payment.IdempotencyKey)
			if findErr != nil {
				observability.RecordRepositoryOperation(ctx, "payment", "create", "error")
				return nil, false, findErr
			}
			observability.RecordRepositoryOperation(ctx, "payment", "create", "duplicate")
			return existing, false, nil
		}
		observability.RecordRepositoryOperation(ctx, "payment", "create", "error")
		return nil, false, err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "create", "success")
	return payment, true, nil
}

func (r *GormPaymentRepository) Finalize(ctx context.Context, merchantID, id string, status domain.PaymentStatus, refs []domain.SettlementRef) (*domain.Payment, error) {
	if !status.IsTerminal() {
		return nil, errors.New("finalize requires a terminal status")
	}
	res := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ? AND merchant_id = ? AND status = ?", id, merchantID, domain.PaymentStatusPending).
		Select("status", "settlement_refs").
		Updates(&domain.Payment{Status: status, SettlementRefs: refs})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "payment", "finalize", "error")
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the row does not exist or it is already terminal.
		existing, err := r.FindByID(ctx, merchantID, id)
		if err != nil {
			observability.RecordRepositoryOperation(ctx, "payment", "finalize", "not_found")
			return nil, err
		}
		observability.RecordRepositoryOperation(ctx, "payment", "finalize", "already_finalized")
		return existing, ErrPaymentFinalized
	}
	observability.RecordRepositoryOperation(ctx, "payment", "finalize", "success")
	return r.FindByID(ctx, merchantID, id)
}

// isUniqueViolation matches unique-constraint failures across postgres and
// the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
