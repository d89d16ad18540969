package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"wushuacademy_go/config"
	"wushuacademy_go/models"
)

type StorageService struct {
	s3Client *s3.S3
	bucket   string
}

// NewStorageService creates a new storage service
func NewStorageService() (*StorageService, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AppConfig.AWSRegion),
		Credentials: credentials.NewStaticCredentials(
			config.AppConfig.AWSAccessKeyID,
			config.AppConfig.AWSSecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		bucket:   config.AppConfig.S3BucketName,
	}, nil
}

// ArchiveReceipt decodes the payment-receipt data-URI stored on an approved
// registration and uploads the original image to S3. Returns the object key.
func (s *StorageService) ArchiveReceipt(reg *models.Registration) (string, error) {
	data, ext, err := DecodeDataURI(reg.PaymentReceiptBase64)
	if err != nil {
		return "", fmt.Errorf("receipt for %s: %w", reg.RegistrationNumber, err)
	}

	key := fmt.Sprintf("receipts/%s-%s.%s", reg.RegistrationNumber, uuid.New().String()[:8], ext)
	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("image/" + ext),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt to S3: %v", err)
	}
	return key, nil
}

// DecodeDataURI splits a data:image/<ext>;base64,<payload> value into the
// raw bytes and the image extension.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:image/") {
		return nil, "", fmt.Errorf("not an image data URI")
	}
	rest := strings.TrimPrefix(uri, "data:image/")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return nil, "", fmt.Errorf("missing base64 marker in data URI")
	}
	ext := rest[:sep]
	payload := rest[sep+len(";base64,"):]

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 payload: %v", err)
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	return data, ext, nil
}
