// Package gestation computes the pregnancy week from a due date.
package gestation

import (
	"fmt"
	"time"

	"pregnancyai/app/config"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/do"
)

const (
	FullTermWeeks    = 40
	DefaultCacheSize = 50

	dateLayout = "2006-01-02"
)

type cacheKey struct {
	due   time.Time
	today time.Time
}

// Calculator memoizes WeekOf lookups. A nil cache disables memoization.
type Calculator struct {
	cache *lru.Cache[cacheKey, int]
	now   func() time.Time
}

func New(di *do.Injector) (*Calculator, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewCalculator(cfg.Gestation.CacheSize, time.Now)
}

func NewCalculator(cacheSize int, now func() time.Time) (*Calculator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[cacheKey, int](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create week cache: %w", err)
	}

	return &Calculator{
		cache: cache,
		now:   now,
	}, nil
}

// WeekOf returns the gestational week in [0, 40] for due as seen on today.
func (c *Calculator) WeekOf(due, today time.Time) int {
	key := cacheKey{due: Date(due), today: Date(today)}

	if c == nil || c.cache == nil {
		return weekOf(key.due, key.today)
	}

	if week, ok := c.cache.Get(key); ok {
		return week
	}

	week := weekOf(key.due, key.today)
	c.cache.Add(key, week)

	return week
}

// Current evaluates WeekOf against the calculator clock.
func (c *Calculator) Current(due time.Time) int {
	return c.WeekOf(due, c.Today())
}

func (c *Calculator) Today() time.Time {
	if c == nil || c.now == nil {
		return Date(time.Now())
	}

	return Date(c.now())
}

func (c *Calculator) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}

	return c.cache.Len()
}

func weekOf(due, today time.Time) int {
	days := DaysBetween(today, due)
	week := FullTermWeeks - floorDiv(days, 7)

	return max(0, min(FullTermWeeks, week))
}

// DaysBetween is signed: negative when from is after to.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

// Date truncates t to its calendar day at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}

	return Date(t), nil
}

func FormatDate(t time.Time) string {
	return Date(t).Format(dateLayout)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}

	return q
}
