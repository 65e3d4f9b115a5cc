// internal/common/aws/ses.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESClient struct {
	client *ses.Client
}

func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

// SendBatchSummary emails the end-of-batch report to the operators.
func (s *SESClient) SendBatchSummary(ctx context.Context, from string, to []string, subject, body string) error {
	addrs := make([]string, len(to))
	copy(addrs, to)

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      &from,
		Destination: &types.Destination{ToAddresses: addrs},
		Message: &types.Message{
			Subject: &types.Content{Data: &subject},
			Body: &types.Body{
				Text: &types.Content{Data: &body},
			},
		},
	})
	return err
}
