package mail

import (
	"context"
	"fmt"
)

const (
	DriverSMTP = "smtp"
	DriverSES  = "ses"
	DriverLog  = "log"
)

// FactoryOptions holds the settings of every driver; only the selected one is read.
type FactoryOptions struct {
	SMTP SMTPConfig
	SES  SESConfig
	From string
}

// New builds the Mail implementation named by driver.
func New(ctx context.Context, driver string, opts FactoryOptions) (Mail, error) {
	switch driver {
	case DriverSMTP, "":
		if opts.SMTP.From == "" {
			opts.SMTP.From = opts.From
		}
		return NewSMTP(opts.SMTP)
	case DriverSES:
		if opts.SES.From == "" {
			opts.SES.From = opts.From
		}
		return NewSES(ctx, opts.SES)
	case DriverLog:
		return NewLog(opts.From), nil
	default:
		return nil, fmt.Errorf("mail: unsupported driver %q", driver)
	}
}
