package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

const orderCounterTTL = 48 * time.Hour

type dailyCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	OrderCounterKey(day string) string
}

// NumberGenerator issues human-facing order numbers of the form PREFIX-YYYYMMDD-NNNN.
type NumberGenerator struct {
	counter dailyCounter
	prefix  string
	loc     *time.Location
	logg    *logger.Logger
	now     func() time.Time
}

func NewNumberGenerator(counter dailyCounter, prefix string, logg *logger.Logger) *NumberGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "OD"
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &NumberGenerator{counter: counter, prefix: prefix, loc: time.UTC, logg: logg, now: time.Now}
}

// Next returns the next number for today. When the counter store is down the
// sequence is replaced by a random suffix; the unique index still guards collisions.
func (g *NumberGenerator) Next(ctx context.Context) string {
	day := g.now().In(g.loc).Format("20060102")
	if g.counter != nil {
		seq, err := g.counter.IncrWithTTL(ctx, g.counter.OrderCounterKey(day), orderCounterTTL)
		if err == nil {
			return fmt.Sprintf("%s-%s-%04d", g.prefix, day, seq)
		}
		g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "order counter unavailable, using random suffix")
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-R%s", g.prefix, day, suffix)
}
