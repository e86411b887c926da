package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"careersync/internal/config"
	"careersync/internal/logging"
)

// SpacesClient wraps the S3 client for DigitalOcean Spaces operations.
// Debug screenshots captured by the browser strategy are uploaded here so
// a failed scrape can be inspected without shell access to the host.
type SpacesClient struct {
	client     *s3.S3
	bucketName string
	bucketURL  string
	cdnURL     string
	logger     logging.Logger
}

// NewSpacesClient creates a new DigitalOcean Spaces client
func NewSpacesClient(cfg *config.Config) (*SpacesClient, error) {
	logger := logging.GetGlobalLogger()

	if cfg.Spaces.AccessKeyID == "" || cfg.Spaces.AccessKeySecret == "" {
		return nil, fmt.Errorf("spaces credentials are required")
	}

	if cfg.Spaces.BucketName == "" {
		return nil, fmt.Errorf("spaces bucket name is required")
	}

	// Region endpoint, not the bucket endpoint: the SDK adds the bucket
	// via virtual-hosted-style addressing.
	endpoint := fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Spaces.Region)

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			cfg.Spaces.AccessKeyID,
			cfg.Spaces.AccessKeySecret,
			"",
		),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(cfg.Spaces.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create spaces session: %w", err)
	}

	logger.Info("Spaces client initialized", map[string]interface{}{
		"bucket_name": cfg.Spaces.BucketName,
		"region":      cfg.Spaces.Region,
		"endpoint":    endpoint,
	})

	return &SpacesClient{
		client:     s3.New(sess),
		bucketName: cfg.Spaces.BucketName,
		bucketURL:  cfg.Spaces.BucketURL,
		cdnURL:     cfg.Spaces.CDNEndpoint,
		logger:     logger,
	}, nil
}

// UploadScreenshot uploads a debug screenshot and returns its public URL.
// Names carry the company id and capture timestamp, so entries never
// collide and old ones are left for the bucket lifecycle policy to reap.
func (sc *SpacesClient) UploadScreenshot(name string, imageData []byte) (string, error) {
	objectKey := fmt.Sprintf("scrapes/screenshots/%s.jpg", name)

	sc.logger.Info("Uploading screenshot to Spaces", map[string]interface{}{
		"object_key": objectKey,
		"size_bytes": len(imageData),
	})

	_, err := sc.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(sc.bucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String("image/jpeg"),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		sc.logger.Error("Failed to upload screenshot to Spaces", map[string]interface{}{
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("failed to upload screenshot: %w", err)
	}

	screenshotURL := sc.publicURL(objectKey)
	sc.logger.Info("Screenshot uploaded", map[string]interface{}{
		"object_key":     objectKey,
		"screenshot_url": screenshotURL,
	})

	return screenshotURL, nil
}

// publicURL prefers the CDN endpoint, then the configured bucket URL, then
// the regional bucket address.
func (sc *SpacesClient) publicURL(objectKey string) string {
	if sc.cdnURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(sc.cdnURL, "/"), objectKey)
	}

	if sc.bucketURL != "" {
		base := strings.TrimRight(sc.bucketURL, "/")
		if !strings.HasPrefix(base, "https://") {
			base = "https://" + base
		}
		return fmt.Sprintf("%s/%s", base, objectKey)
	}

	region := ""
	if sc.client.Config.Region != nil {
		region = *sc.client.Config.Region
	}
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", sc.bucketName, region, objectKey)
}

// IsHealthy checks if the Spaces client can communicate with the service
func (sc *SpacesClient) IsHealthy() bool {
	_, err := sc.client.HeadBucket(&s3.HeadBucketInput{
		Bucket: aws.String(sc.bucketName),
	})

	healthy := err == nil
	if !healthy {
		sc.logger.Error("Spaces health check failed", map[string]interface{}{
			"bucket_name": sc.bucketName,
			"error":       err.Error(),
		})
	}

	return healthy
}
