// Package changefeed turns Postgres NOTIFY events from the tracked tables into
// invalidation notices for the owning user.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yungbote/noctisium-backend/internal/data/db"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

type payload struct {
	Table  string    `json:"table"`
	UserID uuid.UUID `json:"user_id"`
}

type Publisher interface {
	PublishNotice(n invalidation.Notice)
}

type Feed struct {
	log     *logger.Logger
	dsn     string
	channel string
	pub     Publisher

	minBackoff time.Duration
	maxBackoff time.Duration
}

func New(log *logger.Logger, dsn string, pub Publisher) *Feed {
	return &Feed{
		log:        log.With("service", "ChangeFeed"),
		dsn:        dsn,
		channel:    db.ChangeChannel,
		pub:        pub,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run listens until ctx is done, reconnecting with backoff after failures.
func (f *Feed) Run(ctx context.Context) error {
	backoff := f.minBackoff
	for {
		err := f.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		f.log.Warn("change feed disconnected; reconnecting", "error", err, "backoff", backoff.String())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > f.maxBackoff {
			backoff = f.maxBackoff
		}
	}
}

func (f *Feed) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, f.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	f.log.Info("Listening for table changes", "channel", f.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := f.handle(n.Payload); err != nil {
			f.log.Warn("bad change payload", "error", err)
		}
	}
}

var errNoUser = errors.New("change payload missing user_id")

func (f *Feed) handle(raw string) error {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return err
	}
	topic, ok := invalidation.TopicForTable(p.Table)
	if !ok {
		f.log.Debug("ignoring change on untracked table", "table", p.Table)
		return nil
	}
	if p.UserID == uuid.Nil {
		return errNoUser
	}
	f.pub.PublishNotice(invalidation.Notice{Topic: topic, UserID: p.UserID, Origin: invalidation.OriginChangefeed})
	return nil
}
