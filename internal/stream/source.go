package stream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paymentops/payment-processor/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cursor for "only entries never delivered to this group"
const newEntriesCursor = ">"

type SourceOpts struct {
	Queue        string
	Group        string
	Consumer     string
	ReadCount    int64 // entries per read, default 1
	BlockTimeout time.Duration
}

// Source consumes payment events from a Redis Stream through a consumer
// group. Entries are acknowledged only after they decode and validate;
// malformed entries stay in the pending-entries list.
type Source struct {
	rdb  *redis.Client
	opts SourceOpts
	log  *zap.Logger

	groupReady bool
}

func NewSource(rdb *redis.Client, opts SourceOpts, log *zap.Logger) *Source {
	if opts.ReadCount <= 0 {
		opts.ReadCount = 1
	}
	return &Source{rdb: rdb, opts: opts, log: log}
}

// Dequeue reads at most one validated event from the stream. It returns
// (nil, nil) when the stream has nothing for this consumer or when the next
// entry is malformed; transport errors propagate.
func (s *Source) Dequeue(ctx context.Context) (*model.PaymentEvent, error) {
	if err := s.ensureGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}

	entry, err := s.readOne(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stream entry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}

	ev, err := decodeEntry(entry.Values)
	if err != nil {
		// no ack: the entry remains claimable for manual inspection
		s.log.Warn("malformed stream entry",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return nil, nil
	}

	if err := s.rdb.XAck(ctx, s.opts.Queue, s.opts.Group, entry.ID).Err(); err != nil {
		return nil, fmt.Errorf("ack entry %s: %w", entry.ID, err)
	}

	return &ev, nil
}

// ensureGroup creates the consumer group (and the stream, if absent).
// An already existing group is success.
func (s *Source) ensureGroup(ctx context.Context) error {
	if s.groupReady {
		return nil
	}
	err := s.rdb.XGroupCreateMkStream(ctx, s.opts.Queue, s.opts.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	s.groupReady = true
	return nil
}

func (s *Source) readOne(ctx context.Context) (*redis.XMessage, error) {
	res, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.opts.Group,
		Consumer: s.opts.Consumer,
		Streams:  []string{s.opts.Queue, newEntriesCursor},
		Count:    s.opts.ReadCount,
		Block:    s.opts.BlockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, nil
	}
	return &res[0].Messages[0], nil
}

// decodeEntry coerces the flat field map of a stream entry into a validated
// PaymentEvent. Fields: id, amount, currency, method, status, eventAt.
func decodeEntry(values map[string]interface{}) (model.PaymentEvent, error) {
	amountRaw := stringField(values, "amount")
	amount, err := strconv.ParseInt(amountRaw, 10, 64)
	if err != nil {
		return model.PaymentEvent{}, fmt.Errorf("invalid amount %q: %w", amountRaw, err)
	}

	return model.NewPaymentEvent(
		stringField(values, "id"),
		amount,
		stringField(values, "currency"),
		stringField(values, "method"),
		stringField(values, "status"),
		stringField(values, "eventAt"),
	)
}

func stringField(values map[string]interface{}, key string) string {
	v, ok := values[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
