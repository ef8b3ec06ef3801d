package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/edupulse/campus-messaging/environments"
	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	receiptKeyPrefix = "delivery_receipt:"
	receiptTTL       = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// CacheReceipt stores the gateway message id for one delivered send
// recipient, keyed by the send-recipient row id, with a TTL.
func (c *Client) CacheReceipt(ctx context.Context, sendRecipientID, messageID string, deliveredAt time.Time) error {
	receipt := domain.DeliveryReceipt{
		MessageID:   messageID,
		DeliveredAt: deliveredAt,
	}

	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	key := receiptKeyPrefix + sendRecipientID

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(receiptTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache delivery receipt: %w", err)
	}

	logger.Debugf("Cached delivery receipt %s -> %s", sendRecipientID, messageID)

	return nil
}

func (c *Client) GetReceipt(ctx context.Context, sendRecipientID string) (*domain.DeliveryReceipt, error) {
	key := receiptKeyPrefix + sendRecipientID

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get delivery receipt: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery receipt: %w", err)
	}

	var receipt domain.DeliveryReceipt
	if err := json.Unmarshal([]byte(data), &receipt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}

	return &receipt, nil
}

func (c *Client) GetAllReceipts(ctx context.Context) (map[string]*domain.DeliveryReceipt, error) {
	pattern := receiptKeyPrefix + "*"

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan receipt keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	receipts := make(map[string]*domain.DeliveryReceipt)

	for _, key := range keys {
		getResult := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
		if getResult.Error() != nil {
			continue
		}

		data, err := getResult.ToString()
		if err != nil {
			continue
		}

		var receipt domain.DeliveryReceipt
		if err := json.Unmarshal([]byte(data), &receipt); err != nil {
			continue
		}

		receipts[key[len(receiptKeyPrefix):]] = &receipt
	}

	return receipts, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
