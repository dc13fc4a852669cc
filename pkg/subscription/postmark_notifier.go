package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// NotifierConfig holds Postmark credentials for dunning notifications.
type NotifierConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	ProductName          string `env:"PRODUCT_NAME" envDefault:"TradeLog"`
}

var ErrFailedToSendNotification = errors.New("failed to send billing notification")

// PostmarkNotifier sends dunning emails through Postmark's transactional API.
type PostmarkNotifier struct {
	client *postmark.Client
	config NotifierConfig
}

// NewPostmarkNotifier creates a Postmark-backed notifier.
func NewPostmarkNotifier(cfg NotifierConfig) (*PostmarkNotifier, error) {
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrFailedToSendNotification)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: sender email is required", ErrFailedToSendNotification)
	}
	return &PostmarkNotifier{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

func (n *PostmarkNotifier) PaymentFailed(ctx context.Context, notice PaymentFailedNotice) error {
	subject := fmt.Sprintf("%s: payment failed, please update your billing details", n.config.ProductName)
	body := fmt.Sprintf(
		`<p>We could not charge your payment method (attempt %d).</p>
<p>Please update your billing details to keep your subscription active.</p>
<p><a href="%s">Manage subscription</a></p>`,
		notice.AttemptNumber, notice.ManageURL,
	)

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.config.SenderEmail,
		To:       notice.Email,
		Subject:  subject,
		HTMLBody: body,
		Tag:      "dunning",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendNotification, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSendNotification,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
