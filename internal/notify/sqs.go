package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/quarterfold/suppliersync/internal/domain"
)

// envelope is the wire frame every queue message shares.
type envelope struct {
	Data                any             `json:"data"`
	Type                string          `json:"type"`
	VendorID            string          `json:"vendorId"`
	QueueMessageID      string          `json:"queueMessageId"`
	MarketplacePlatform domain.Platform `json:"marketplacePlatform"`
	ClientID            string          `json:"clientId"`
}

type SQSConfig struct {
	PusherURL          string
	InventoryPusherURL string
	Platform           domain.Platform
	ClientID           string
	SendTimeout        time.Duration
}

// SQSDispatcher publishes to the marketplace FIFO queues. The merchant-api
// platform consumes state directly, so all sends are skipped for it.
type SQSDispatcher struct {
	client *awssqs.Client
	cfg    SQSConfig
	logger *log.Logger
}

func NewSQSDispatcher(client *awssqs.Client, cfg SQSConfig, logger *log.Logger) *SQSDispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &SQSDispatcher{client: client, cfg: cfg, logger: logger}
}

func (d *SQSDispatcher) SendVariantInventoryPricesUpdate(items []VariantInventoryPriceItem, supplierID string) {
	queueURL := d.cfg.InventoryPusherURL
	if queueURL == "" {
		queueURL = d.cfg.PusherURL
	}
	d.send(map[string]any{"products": items}, TypeInventoryPrices, queueURL,
		TypeInventoryPrices+"_"+supplierID, supplierID)
}

func (d *SQSDispatcher) SendVariantStatusUpdate(items []VariantStatusItem, supplierID string) {
	d.send(map[string]any{"disabledProducts": items}, TypeProductStatus, d.cfg.PusherURL,
		"DISABLED_PRODUCTS_"+supplierID, supplierID)
}

func (d *SQSDispatcher) SendProductImages(items []ProductImageSyncItem, supplierID string) {
	d.send(map[string]any{"products": items}, TypeProductImages, d.cfg.PusherURL,
		TypeProductImages+"_"+supplierID, supplierID)
}

func (d *SQSDispatcher) send(data any, msgType, queueURL, groupID, supplierID string) {
	if d.cfg.Platform == domain.PlatformMerchantAPI {
		return
	}

	messageID := uuid.New().String()
	body, err := json.Marshal(envelope{
		Data:                data,
		Type:                msgType,
		VendorID:            supplierID,
		QueueMessageID:      messageID,
		MarketplacePlatform: d.cfg.Platform,
		ClientID:            d.cfg.ClientID,
	})
	if err != nil {
		d.logger.Printf("notify: marshal %s for supplier %s failed: %v", msgType, supplierID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	_, err = d.client.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:               aws.String(queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(groupID),
		MessageDeduplicationId: aws.String(messageID),
	})
	if err != nil {
		d.logger.Printf("notify: send %s for supplier %s failed: %v", msgType, supplierID, err)
	}
}
