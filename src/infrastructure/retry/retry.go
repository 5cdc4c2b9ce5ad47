// Package retry повторяет временно неудачные запросы к внешним API
// (OpenAI-совместимый API, страницы и субтитры YouTube).
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config параметры повторов. Задержка перед попыткой n (с нуля):
// InitialWait * Multiplier^n, но не больше MaxWait.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// Default подходит для большинства HTTP-вызовов
var Default = Config{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

func (c Config) backoff(attempt int) time.Duration {
	wait := time.Duration(float64(c.InitialWait) * math.Pow(c.Multiplier, float64(attempt)))
	if wait > c.MaxWait || wait < 0 {
		wait = c.MaxWait
	}
	return wait
}

// delay учитывает Retry-After из ответа сервера, ограничивая его MaxWait
func (c Config) delay(attempt int, err error) time.Duration {
	wait := c.backoff(attempt)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > wait {
		wait = min(statusErr.RetryAfter, c.MaxWait)
	}
	return wait
}

// StatusError временная ошибка сервера (429 или 5xx)
type StatusError struct {
	StatusCode int
	// RetryAfter значение заголовка Retry-After; 0 - не задан
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return "HTTP " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}

// Do вызывает fn, пока она возвращает временную ошибку, но не больше
// MaxRetries+1 раз. Отмена и истечение контекста не повторяются.
func Do[T any](ctx context.Context, rc Config, fn func() (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !Temporary(err) || attempt >= rc.MaxRetries {
			return zero, err
		}

		wait := rc.delay(attempt, err)
		slog.Debug("повтор запроса",
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			slog.Any("error", err))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
}

// HTTP выполняет запрос с повторами. Ответы 429, 500, 502, 503 и 504
// повторяются; если повторы исчерпаны, возвращается *StatusError.
// Остальные ответы отдаются вызывающему как есть.
func HTTP(ctx context.Context, rc Config, fn func() (*http.Response, error)) (*http.Response, error) {
	return Do(ctx, rc, func() (*http.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
		resp.Body.Close()
		return nil, statusErr
	})
}

// Temporary сообщает, имеет ли смысл повторить запрос
func Temporary(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return true
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// parseRetryAfter разбирает Retry-After: число секунд или HTTP-дату
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
