package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Pingpayio/ping-checkout-sub000/internal/domain"
)

// ReceiptArchiver persists a settlement receipt once a payment reaches a
// terminal status. Archiving is best-effort: the caller logs and swallows
// failures, since the payment row is the source of truth.
type ReceiptArchiver interface {
	ArchiveReceipt(ctx context.Context, payment *domain.Payment) error
}

type settlementReceipt struct {
	PaymentID      string                 `json:"payment_id"`
	MerchantID     string                 `json:"merchant_id"`
	Status         domain.PaymentStatus   `json:"status"`
	Asset          domain.AssetAmount     `json:"asset"`
	SettlementRefs []domain.SettlementRef `json:"settlement_refs,omitempty"`
	FinalizedAt    time.Time              `json:"finalized_at"`
}

// MinIOReceiptArchiver writes receipts to S3-compatible object storage,
// keyed by merchant and payment id.
type MinIOReceiptArchiver struct {
	client *minio.Client
	bucket string
}

func NewMinIOReceiptArchiver(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOReceiptArchiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	a := &MinIOReceiptArchiver{client: client, bucket: bucket}
	if err := a.ensureBucketExists(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *MinIOReceiptArchiver) ensureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

func (a *MinIOReceiptArchiver) ArchiveReceipt(ctx context.Context, payment *domain.Payment) error {
	receipt := settlementReceipt{
		PaymentID:      payment.ID,
		MerchantID:     payment.MerchantID,
		Status:         payment.Status,
		Asset:          payment.Asset,
		SettlementRefs: payment.SettlementRefs,
		FinalizedAt:    payment.UpdatedAt.UTC(),
	}
	raw, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	objectKey := fmt.Sprintf("receipts/%s/%s.json", payment.MerchantID, payment.ID)
	_, err = a.client.PutObject(ctx, a.bucket, objectKey, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload receipt: %w", err)
	}
	return nil
}
