package sns

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/tamales-preorder/internal/config"
)

// ErrNoRecipient is returned by NewSender when ADMIN_PHONE is empty.
var ErrNoRecipient = errors.New("ADMIN_PHONE not configured")

type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender publishes SMS alerts to the shop owner's phone via AWS SNS.
type Sender struct {
	client publisher
	to     string
}

func NewSender(cfg *config.Config) (*Sender, error) {
	if cfg.AdminPhone == "" {
		return nil, ErrNoRecipient
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	return &Sender{client: sns.NewFromConfig(awsCfg), to: cfg.AdminPhone}, nil
}

func (s *Sender) SendSMS(ctx context.Context, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(s.to),
		Message:     aws.String(message),
	})
	return err
}
