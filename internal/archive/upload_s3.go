package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Target names the bucket, key and region a packaged session archive is
// pushed to. Only S3 is wired; see DESIGN.md for why the teacher's other
// storage backends are not.
type S3Target struct {
	Bucket string
	Key    string
	Region string
}

// UploadS3 pushes the archive at zipPath to the given S3 target using the
// default AWS credential chain (environment, shared config, instance
// role), via the multipart-upload manager so a large dataset archive
// doesn't require buffering the whole file in memory.
func UploadS3(ctx context.Context, zipPath string, target S3Target) error {
	if target.Bucket == "" || target.Key == "" {
		return fmt.Errorf("s3 target: bucket and key are required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(target.Region))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	f, err := os.Open(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer f.Close()

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client)

	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(target.Key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload %s to s3://%s/%s: %w", zipPath, target.Bucket, target.Key, err)
	}
	return nil
}
