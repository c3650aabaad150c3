// Package avatars stores account avatar images in an S3-compatible bucket.
// The service never proxies image bytes; it hands out short-lived presigned
// URLs and the account record keeps only the object key.
package avatars

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Config carries the object-storage settings for avatar storage.
type Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

type Service struct {
	config Config
}

func NewService(config Config) *Service {
	return &Service{config: config}
}

// StorageKey returns a fresh object key for an avatar upload.
func StorageKey() string {
	return fmt.Sprintf("avatars/%v", uuid.New())
}

func (s *Service) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.RootUser,
			s.config.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a new object key and a presigned PUT URL for it,
// valid for 15 minutes.
func (s *Service) PresignUpload(ctx context.Context) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.Bucket
	key := StorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// PresignView returns a presigned GET URL for the stored avatar key,
// valid for 15 minutes.
func (s *Service) PresignView(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// httpDo is a seam for testing Upload without a network.
var httpDo = func(req *http.Request) (*http.Response, error) {
	client := &http.Client{}
	return client.Do(req)
}

// Upload PUTs the image bytes to a presigned URL.
func Upload(ctx context.Context, url string, image []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(image))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := httpDo(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
