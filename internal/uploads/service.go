// Package uploads issues short-lived presigned POST grants that let the admin
// UI upload venue images straight to S3.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"venueadmin/internal/metrics"
	"venueadmin/internal/validation"
)

const (
	// GrantTTL is how long a presigned POST stays usable.
	GrantTTL = 60 * time.Second
	// ContentType is the only content type a grant accepts.
	ContentType = "image/jpeg"

	defaultRegion = "us-east-1"
)

var (
	// ErrBucketNotConfigured means S3_BUCKET is unset.
	ErrBucketNotConfigured = errors.New("s3 bucket is not configured")
	// ErrMissingID means the venue id was blank.
	ErrMissingID = errors.New("id is required")
	// ErrInvalidKind means the kind is not logo, image or ogImage.
	ErrInvalidKind = errors.New("invalid kind")
)

// Kind names an image slot on a venue.
type Kind string

const (
	KindLogo    Kind = "logo"
	KindImage   Kind = "image"
	KindOGImage Kind = "ogImage"
)

type slot struct {
	file     string
	maxBytes int64
}

var slots = map[Kind]slot{
	KindLogo:    {file: "logo.jpg", maxBytes: 50 * 1024},
	KindImage:   {file: "image.jpg", maxBytes: 100 * 1024},
	KindOGImage: {file: "og.jpg", maxBytes: 100 * 1024},
}

// Config describes the bucket grants are issued for.
type Config struct {
	Bucket          string
	Region          string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional, for S3-compatible stores
	PublicReadACL   bool
}

// Request is the body of an upload grant request.
type Request struct {
	ID   string `json:"id" validate:"required"`
	Kind string `json:"kind" validate:"oneof=logo image ogImage"`
}

// Grant is everything the browser needs to POST one image.
type Grant struct {
	URL         string            `json:"url"`
	Fields      map[string]string `json:"fields"`
	Key         string            `json:"key"`
	PublicURL   string            `json:"publicUrl"`
	MaxBytes    int64             `json:"maxBytes"`
	ContentType string            `json:"contentType"`
}

// Presigner signs POST policies.
type Presigner interface {
	PresignPostObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error)
}

// Service issues upload grants. It never writes to the venue record; callers
// store PublicURL on the venue once the upload succeeds.
type Service struct {
	cfg       Config
	presigner Presigner
}

// New builds a Service that signs with the default AWS credential chain, or
// with the static keys in cfg when both are set.
func New(ctx context.Context, cfg Config) (*Service, error) {
	cfg = normalizeConfig(cfg)

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithPresigner(cfg, s3.NewPresignClient(client)), nil
}

// NewWithPresigner builds a Service around an existing presigner.
func NewWithPresigner(cfg Config, presigner Presigner) *Service {
	return &Service{cfg: normalizeConfig(cfg), presigner: presigner}
}

// Grant issues a presigned POST for the image slot kind of venue id. The key
// is deterministic, so a new upload replaces the previous image.
func (s *Service) Grant(ctx context.Context, req Request) (Grant, error) {
	if s.cfg.Bucket == "" {
		return Grant{}, ErrBucketNotConfigured
	}

	req.ID = strings.ToLower(strings.TrimSpace(req.ID))
	req.Kind = strings.TrimSpace(req.Kind)
	if err := validation.Struct(req); err != nil {
		var fe *validation.FieldError
		if errors.As(err, &fe) && fe.Field == "id" {
			return Grant{}, ErrMissingID
		}
		return Grant{}, ErrInvalidKind
	}

	kind := Kind(req.Kind)
	sl := slots[kind]
	key := Key(req.ID, kind)

	conditions := []interface{}{
		[]interface{}{"content-length-range", 1, sl.maxBytes},
		map[string]string{"Content-Type": ContentType},
	}
	if s.cfg.PublicReadACL {
		conditions = append(conditions, map[string]string{"acl": "public-read"})
	}

	presigned, err := s.presigner.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = GrantTTL
		o.Conditions = conditions
	})
	if err != nil {
		return Grant{}, fmt.Errorf("presign %s: %w", key, err)
	}

	fields := make(map[string]string, len(presigned.Values)+3)
	for k, v := range presigned.Values {
		fields[k] = v
	}
	fields["key"] = key
	fields["Content-Type"] = ContentType
	if s.cfg.PublicReadACL {
		fields["acl"] = "public-read"
	}

	metrics.RecordUploadGrant(req.Kind)
	return Grant{
		URL:         presigned.URL,
		Fields:      fields,
		Key:         key,
		PublicURL:   s.PublicURL(key),
		MaxBytes:    sl.maxBytes,
		ContentType: ContentType,
	}, nil
}

// Key returns the object key for an image slot of a venue.
func Key(venueID string, kind Kind) string {
	sl, ok := slots[kind]
	if !ok {
		return ""
	}
	return "venues/" + venueID + "/" + sl.file
}

// PublicURL returns where an uploaded object can be read.
func (s *Service) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	if s.cfg.Region == defaultRegion {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

func normalizeConfig(cfg Config) Config {
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.Region = strings.TrimSpace(cfg.Region)
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	cfg.PublicBaseURL = strings.TrimSpace(cfg.PublicBaseURL)
	cfg.AccessKeyID = strings.TrimSpace(cfg.AccessKeyID)
	cfg.SecretAccessKey = strings.TrimSpace(cfg.SecretAccessKey)
	return cfg
}
