package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Consumer drains one device stream through a consumer group. Entries are
// acknowledged only after the player executed them, so a crash between
// read and ack redelivers on the next start.
type Consumer struct {
	rdb      redis.Cmdable
	stream   string
	group    string
	name     string
	player   *Player
	logger   logging.Logger
	block    time.Duration
	batch    int64
	retryGap time.Duration
}

type ConsumerOptions struct {
	Stream string
	Group  string
	Name   string
	Block  time.Duration
	Batch  int64
}

func NewConsumer(rdb redis.Cmdable, p *Player, l logging.Logger, opts ConsumerOptions) *Consumer {
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.Batch <= 0 {
		opts.Batch = 10
	}
	return &Consumer{
		rdb:      rdb,
		stream:   opts.Stream,
		group:    opts.Group,
		name:     opts.Name,
		player:   p,
		logger:   l.With("module", "stream_consumer", "stream", opts.Stream),
		block:    opts.Block,
		batch:    opts.Batch,
		retryGap: time.Second,
	}
}

// EnsureGroup creates the stream and group if they are missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create %s: %w", c.stream, err)
	}
	return nil
}

// Run first replays entries this consumer read but never acknowledged,
// then blocks for new ones until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	if n, err := c.Replay(ctx); err != nil && ctx.Err() == nil {
		c.logger.Warn(ctx, "replaying pending entries failed", "replayed", n, "error", err)
	} else if n > 0 {
		c.logger.Info(ctx, "replayed pending entries", "count", n)
	}

	for ctx.Err() == nil {
		if _, err := c.Poll(ctx, ">"); err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error(ctx, "stream read failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.retryGap):
			}
		}
	}
	return nil
}

// Replay drains entries this consumer read but never acknowledged. A
// pending-history read returns at most one batch and acknowledged entries
// leave the pending list, so it polls from "0" until nothing is left.
func (c *Consumer) Replay(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := c.Poll(ctx, "0")
		total += n
		if err != nil || n == 0 {
			return total, err
		}
	}
}

// Poll reads one batch starting at start (">" for new entries, "0" for
// this consumer's pending ones), executes and acknowledges it. It returns
// how many entries were handled.
func (c *Consumer) Poll(ctx context.Context, start string) (int, error) {
	args := &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{c.stream, start},
		Count:    c.batch,
	}
	if start == ">" {
		args.Block = c.block
	} else {
		args.Block = -1
	}

	streams, err := c.rdb.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			c.handle(ctx, msg)
			if err := c.rdb.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
				return handled, fmt.Errorf("xack %s: %w", msg.ID, err)
			}
			handled++
		}
	}
	return handled, nil
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) {
	command, _ := msg.Values["command"].(string)
	messageID, _ := msg.Values["messageId"].(string)

	var payload map[string]any
	if raw, _ := msg.Values["payload"].(string); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			c.logger.Warn(ctx, "dropping entry with bad payload", "entry_id", msg.ID, "message_id", messageID, "error", err)
			return
		}
	}

	code, _ := c.player.Execute(command, payload)
	c.logger.Info(ctx, "queued command", "entry_id", msg.ID, "message_id", messageID, "command", command, "status", code)
}
