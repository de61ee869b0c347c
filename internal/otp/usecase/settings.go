package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shandysiswandi/gootp/internal/pkg/config"
)

// ErrInvalidSettings wraps every settings validation failure.
var ErrInvalidSettings = errors.New("otp: invalid settings")

// MaxCodeLength is the longest code the otpcode validator tag accepts. Codes,
// prefix included, must be letters or digits.
const MaxCodeLength = 32

var rePrefix = regexp.MustCompile(`^[A-Za-z0-9]*$`)

// Settings is the OTP configuration, read once at startup.
type Settings struct {
	CodeLength        int
	CodePrefix        string
	MaxAttempts       int
	AttemptWindow     time.Duration
	Expiration        time.Duration
	RetryMaxAttempts  int
	RetryBaseDelay    time.Duration
	RetryMultiplier   float64
	NotificationQueue string
	DeadLetterQueue   string
	MailSubject       string
}

// DefaultSettings mirrors the values the service has always shipped with.
func DefaultSettings() Settings {
	return Settings{
		CodeLength:        6,
		MaxAttempts:       5,
		AttemptWindow:     15 * time.Minute,
		Expiration:        30 * time.Minute,
		RetryMaxAttempts:  3,
		RetryBaseDelay:    time.Second,
		RetryMultiplier:   2,
		NotificationQueue: "otp-notification-queue",
		DeadLetterQueue:   "otp-notification-dlq",
		MailSubject:       "Your one-time passcode",
	}
}

// SettingsFromConfig reads modules.otp.* keys. Unset keys keep their default.
func SettingsFromConfig(cfg config.Config) Settings {
	s := DefaultSettings()

	if v := cfg.GetInt("modules.otp.code.length"); v != 0 {
		s.CodeLength = v
	}
	s.CodePrefix = cfg.GetString("modules.otp.code.prefix")
	if v := cfg.GetInt("modules.otp.attempt.max"); v != 0 {
		s.MaxAttempts = v
	}
	if v := cfg.GetMinute("modules.otp.attempt.window_minutes"); v != 0 {
		s.AttemptWindow = v
	}
	if v := cfg.GetMinute("modules.otp.expiration_minutes"); v != 0 {
		s.Expiration = v
	}
	if v := cfg.GetInt("modules.otp.retry.max_attempts"); v != 0 {
		s.RetryMaxAttempts = v
	}
	if v := cfg.GetMillisecond("modules.otp.retry.base_delay_ms"); v != 0 {
		s.RetryBaseDelay = v
	}
	if v := cfg.GetFloat64("modules.otp.retry.multiplier"); v != 0 {
		s.RetryMultiplier = v
	}
	if v := cfg.GetString("modules.otp.queue.notification"); v != "" {
		s.NotificationQueue = v
	}
	if v := cfg.GetString("modules.otp.queue.dead_letter"); v != "" {
		s.DeadLetterQueue = v
	}
	if v := cfg.GetString("modules.otp.mail.subject"); v != "" {
		s.MailSubject = v
	}

	return s
}

func (s Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSettings}, args...)...))
		}
	}

	check(s.CodeLength > 0, "code length must be positive, got %d", s.CodeLength)
	check(s.CodeLength <= MaxCodeLength, "code length must be at most %d, got %d", MaxCodeLength, s.CodeLength)
	check(rePrefix.MatchString(s.CodePrefix), "code prefix %q must contain only letters or digits", s.CodePrefix)
	check(len(s.CodePrefix) < s.CodeLength, "code prefix %q leaves no random digits", s.CodePrefix)
	check(s.MaxAttempts > 0, "max attempts must be positive, got %d", s.MaxAttempts)
	check(s.AttemptWindow > 0, "attempt window must be positive")
	check(s.Expiration > 0, "expiration must be positive")
	check(s.RetryMaxAttempts > 0, "retry max attempts must be positive, got %d", s.RetryMaxAttempts)
	check(s.RetryBaseDelay > 0, "retry base delay must be positive")
	check(s.RetryMultiplier >= 1, "retry multiplier must be at least 1, got %v", s.RetryMultiplier)
	check(s.NotificationQueue != "", "notification queue is required")
	check(s.DeadLetterQueue != "", "dead letter queue is required")
	check(s.NotificationQueue != s.DeadLetterQueue, "notification and dead letter queues must differ")

	return errors.Join(errs...)
}

// backoffDelay is the wait before retry number n (0-based): base * multiplier^n.
func (s Settings) backoffDelay(n int) time.Duration {
	d := float64(s.RetryBaseDelay)
	for range n {
		d *= s.RetryMultiplier
	}
	return time.Duration(d)
}

// maxRetryDuration bounds one ProcessAsync call: twice the sum of every
// backoff step, never below one second.
func (s Settings) maxRetryDuration() time.Duration {
	var total time.Duration
	for n := range s.RetryMaxAttempts - 1 {
		total += s.backoffDelay(n)
	}
	return max(2*total, time.Second)
}
