package otp

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/otp/inbound"
	"github.com/shandysiswandi/gootp/internal/otp/outbound/cache"
	"github.com/shandysiswandi/gootp/internal/otp/outbound/db"
	"github.com/shandysiswandi/gootp/internal/otp/outbound/email"
	"github.com/shandysiswandi/gootp/internal/otp/outbound/memory"
	"github.com/shandysiswandi/gootp/internal/otp/outbound/mq"
	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gootp/internal/pkg/hash"
	"github.com/shandysiswandi/gootp/internal/pkg/idempotency"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/mail"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/pkg/otp"
	"github.com/shandysiswandi/gootp/internal/pkg/otpcrypto"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
	"golang.org/x/crypto/hkdf"
)

const (
	attemptStoreDatabase = "database"
	attemptStoreRedis    = "redis"
)

// Dependency wires the otp module. DBConn and CacheConn are optional: without
// DBConn records and attempts live in memory, without CacheConn attempts use
// the record store's backend and deliveries are not deduplicated.
type Dependency struct {
	Ctx        context.Context
	DBConn     *pgxpool.Pool
	CacheConn  redis.UniversalClient
	Messaging  messaging.Messaging        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	settings := usecase.SettingsFromConfig(dep.Config)

	key := dep.Config.GetString("modules.otp.encryption_key")
	engine, err := otpcrypto.NewAESCBC(key)
	if err != nil {
		return goerror.NewConfiguration(err)
	}

	codes, err := otp.NewNumeric(settings.CodeLength, settings.CodePrefix)
	if err != nil {
		return goerror.NewConfiguration(err)
	}

	repoRecord, repoAttempt := recordStores(dep)
	switch store := attemptStore(dep.Config); store {
	case attemptStoreDatabase:
	case attemptStoreRedis:
		if dep.CacheConn == nil {
			return goerror.NewConfiguration(fmt.Errorf("modules.otp.attempt.store is %q but redis is not configured", store))
		}
		secret, err := attemptKeySecret(key)
		if err != nil {
			return goerror.NewConfiguration(err)
		}
		repoAttempt = cache.NewCache(dep.CacheConn, hash.NewHMACSHA256(secret), settings.AttemptWindow, dep.Instrument)
	default:
		return goerror.NewConfiguration(fmt.Errorf("unknown modules.otp.attempt.store %q", store))
	}

	repoSender, err := email.New(dep.Mail, email.Options{
		Subject:    settings.MailSubject,
		AppName:    dep.Config.GetString("app.name"),
		Expiration: settings.Expiration,
	}, dep.Clock, dep.Instrument)
	if err != nil {
		return err
	}

	var idemp idempotency.Idempotency
	if dep.CacheConn != nil {
		idemp = idempotency.New(dep.CacheConn)
	}

	uc, err := usecase.New(usecase.Dependency{
		Settings:    settings,
		RepoRecord:  repoRecord,
		RepoAttempt: repoAttempt,
		RepoSender:  repoSender,
		RepoQueue:   mq.NewMessaging(dep.Messaging, dep.Instrument),
		Engine:      engine,
		Codes:       codes,
		Idempotency: idemp,
		Validator:   dep.Validator,
		UUID:        dep.UUID,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
		Goroutine:   dep.Goroutine,
	})
	if err != nil {
		return err
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}

type recordRepo interface {
	InIdentityTx(ctx context.Context, identity string, fn func(ctx context.Context, store usecase.RecordStore) error) error
}

type attemptRepo interface {
	AddAttemptAndCount(ctx context.Context, attempt entity.Attempt, since time.Time) (int, error)
}

func recordStores(dep Dependency) (recordRepo, attemptRepo) {
	if dep.DBConn != nil {
		store := db.NewDB(dep.DBConn, dep.Instrument)
		return store, store
	}

	store := memory.NewStore(dep.Instrument)
	return store, store
}

func attemptStore(cfg config.Config) string {
	v := strings.ToLower(strings.TrimSpace(cfg.GetString("modules.otp.attempt.store")))
	if v == "" {
		return attemptStoreDatabase
	}
	return v
}

// attemptKeySecret derives the HMAC secret for attempt keys from the
// encryption key, so the AES key itself never keys another primitive.
func attemptKeySecret(encodedKey string) (string, error) {
	raw, err := otpcrypto.ParseKey(encodedKey)
	if err != nil {
		return "", err
	}

	secret := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, raw, nil, []byte("gootp/attempt-keys")), secret); err != nil {
		return "", err
	}

	return string(secret), nil
}
