package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/onurcolak/sms-dispatch-service/environments"
	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

type Client struct {
	client     valkey.Client
	balanceTTL time.Duration
}

const (
	sentMessageKeyPrefix = "sent_message:"
	sentMessageTTL       = 24 * time.Hour

	balanceKeyPrefix = "balance:"
)

func NewRedisClient(cfg environments.RedisConfig, balanceTTL time.Duration) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.Addr()},
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

	return &Client{client: client, balanceTTL: balanceTTL}, nil
}

func (c *Client) CacheSentMessage(ctx context.Context, msg domain.Message) error {
	if msg.SentAt == nil || msg.RemoteMessageID == nil {
		return fmt.Errorf("message %d has no send receipt", msg.ID)
	}

	data, err := json.Marshal(domain.SentMessageCache{
		RemoteMessageID: *msg.RemoteMessageID,
		Recipient:       msg.Recipient,
		SentAt:          *msg.SentAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := sentMessageKey(msg.AccountID, msg.ID)

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(sentMessageTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache sent message: %w", err)
	}

	logger.Debugf("Cached message ID %d -> %s in Redis", msg.ID, *msg.RemoteMessageID)

	return nil
}

func sentMessageKey(accountID, messageID int64) string {
	return fmt.Sprintf("%s%d:%d", sentMessageKeyPrefix, accountID, messageID)
}

// GetAllCachedMessages returns the cached receipts of one account keyed by
// message id.
func (c *Client) GetAllCachedMessages(ctx context.Context, accountID int64) (map[int64]*domain.SentMessageCache, error) {
	prefix := fmt.Sprintf("%s%d:", sentMessageKeyPrefix, accountID)

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(prefix+"*").Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", result.Error())
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

	result := make(map[int64]*domain.SentMessageCache)

	for _, key := range keys {
		getResult := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
		if getResult.Error() != nil {
			continue
		}

		data, err := getResult.ToString()
		if err != nil {
			continue
		}

		var cache domain.SentMessageCache
		if err := json.Unmarshal([]byte(data), &cache); err != nil {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil {
			logger.Warnf("failed to parse message id from redis key %q: %v", key, err)
			continue
		}

		result[id] = &cache
	}

	return result, nil
}

func balanceKey(accountID int64) string {
	return balanceKeyPrefix + strconv.FormatInt(accountID, 10)
}

// GetBalance returns the projected balance, or nil on a cache miss.
func (c *Client) GetBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(balanceKey(accountID)).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached balance: %w", err)
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached balance: %w", err)
	}

	var balance domain.AccountBalance
	if err := json.Unmarshal([]byte(data), &balance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached balance: %w", err)
	}

	return &balance, nil
}

func (c *Client) SetBalance(ctx context.Context, balance domain.AccountBalance) error {
	if c.balanceTTL <= 0 {
		return nil
	}

	data, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("failed to marshal balance: %w", err)
	}

	cmd := c.client.B().Set().Key(balanceKey(balance.AccountID)).Value(string(data)).Ex(c.balanceTTL).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}

	return nil
}

func (c *Client) InvalidateBalance(ctx context.Context, accountID int64) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(balanceKey(accountID)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to invalidate balance: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
