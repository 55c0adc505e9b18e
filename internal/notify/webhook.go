package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// BrandEvent 租户生命周期事件载荷（POST 到外部 webhook）。
type BrandEvent struct {
	Event     string `json:"event"` // "brand.created" | "brand.destroyed"
	BrandID   string `json:"brand_id"`
	BrandName string `json:"brand_name"`
	Timestamp string `json:"timestamp"`
}

// Notifier posts brand lifecycle events to a configured webhook. Delivery
// is fire-and-forget: provisioning never fails because a webhook is down.
type Notifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

func NewNotifier(url string, logger *zap.Logger) *Notifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Notifier{httpClient: client, url: url, logger: logger}
}

func (n *Notifier) BrandCreated(ctx context.Context, brandID, brandName string) {
	n.post(ctx, BrandEvent{Event: "brand.created", BrandID: brandID, BrandName: brandName})
}

func (n *Notifier) BrandDestroyed(ctx context.Context, brandID, brandName string) {
	n.post(ctx, BrandEvent{Event: "brand.destroyed", BrandID: brandID, BrandName: brandName})
}

func (n *Notifier) post(ctx context.Context, ev BrandEvent) {
	if n == nil || n.url == "" {
		return
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339)

	go func() {
		resp, err := n.httpClient.R().
			SetContext(context.WithoutCancel(ctx)).
			SetBody(ev).
			Post(n.url)
		if err != nil {
			n.logger.Warn("Webhook delivery failed",
				zap.String("event", ev.Event), zap.Error(err))
			return
		}
		if resp.IsError() {
			n.logger.Warn("Webhook returned error status",
				zap.String("event", ev.Event), zap.Int("status", resp.StatusCode()))
		}
	}()
}
