package mainconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/pharmacy-intake-bridge/internal/config"
)

func TestNeedsAWS(t *testing.T) {
	if NeedsAWS(&appconfig.Config{}) {
		t.Fatal("expected no AWS need without bucket or SES sender")
	}
	if !NeedsAWS(&appconfig.Config{ArchiveBucket: "intake-archive"}) {
		t.Fatal("expected AWS need with archive bucket")
	}
	if !NeedsAWS(&appconfig.Config{SESFromEmail: "rx@example.com"}) {
		t.Fatal("expected AWS need with SES sender")
	}
}

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "us-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "secret",
		AWSEndpointOverride: "http://localhost:4566",
	}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if awsCfg.Region != "us-east-1" {
		t.Fatalf("unexpected region %q", awsCfg.Region)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "test" {
		t.Fatalf("unexpected access key %q", creds.AccessKeyID)
	}

	s3Client := NewS3Client(awsCfg, cfg)
	if got := aws.ToString(s3Client.Options().BaseEndpoint); got != "http://localhost:4566" {
		t.Fatalf("unexpected s3 endpoint %q", got)
	}
	if !s3Client.Options().UsePathStyle {
		t.Fatal("expected path-style addressing with endpoint override")
	}
	if got := aws.ToString(NewSESClient(awsCfg, cfg).Options().BaseEndpoint); got != "http://localhost:4566" {
		t.Fatalf("unexpected ses endpoint %q", got)
	}
}
