package settings

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var timeFormatRe = regexp.MustCompile(`^\d{2}:\d{2}$`)

const cacheTTL = 30 * time.Second

//go:generate mockgen -source=settings_service.go -destination=mock/settings_service_mock.go -package=mock
type Service interface {
	GetScannerState(ctx context.Context) (bool, error)
	SetScannerState(ctx context.Context, on bool, adminID *uuid.UUID) error
	GetEveningEnabled(ctx context.Context) (bool, error)
	SetEveningEnabled(ctx context.Context, enabled bool, adminID *uuid.UUID) error
	GetPresentCutoffTime(ctx context.Context) (string, error)
	SetPresentCutoffTime(ctx context.Context, hhmm string, adminID *uuid.UUID) error
	GetAttendanceCooldownMinutes(ctx context.Context) (int, error)
	GetDuplicateScanWindowSeconds(ctx context.Context) (int, error)
	SetDuplicateScanWindowSeconds(ctx context.Context, seconds int, adminID *uuid.UUID) error
	GetAutoApproveThresholdSeconds(ctx context.Context) (int, error)
	GetOfflineSyncIntervalMinutes(ctx context.Context) (int, error)
	GetSystemConfig(ctx context.Context) (SystemConfig, error)
}

type SystemConfig struct {
	ScannerEnabled             bool   `json:"scanner_enabled"`
	EveningEnabled             bool   `json:"evening_enabled"`
	PresentCutoffTime          string `json:"present_cutoff_time"`
	CooldownMinutes            int    `json:"cooldown_minutes"`
	DuplicateScanWindowSeconds int    `json:"duplicate_scan_window_seconds"`
	AutoApproveThresholdSecs   int    `json:"auto_approve_threshold_seconds"`
	OfflineSyncIntervalMinutes int    `json:"offline_sync_interval_minutes"`
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     singleflight.Group
	logger *zap.Logger
}

// NewService builds the settings reader used across the sync core. rdb may
// be nil, in which case every read goes to the store.
func NewService(repo Repository, rdb *redis.Client) Service {
	return &service{
		repo:   repo,
		rdb:    rdb,
		logger: zap.L().Named("settings"),
	}
}

// get reads through the redis cache; concurrent misses for the same key
// collapse into one store query.
func (s *service) get(ctx context.Context, key string) (string, bool, error) {
	cacheKey := "settings:" + key

	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			return val, true, nil
		}
	}

	type result struct {
		value string
		found bool
	}
	v, err, _ := s.sf.Do(key, func() (any, error) {
		value, found, err := s.repo.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if found && s.rdb != nil {
			if err := s.rdb.Set(ctx, cacheKey, value, cacheTTL).Err(); err != nil {
				s.logger.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return result{value: value, found: found}, nil
	})
	if err != nil {
		return "", false, apperror.Storage(err)
	}
	res := v.(result)
	return res.value, res.found, nil
}

func (s *service) set(ctx context.Context, key, value string, adminID *uuid.UUID) error {
	if err := s.repo.Set(ctx, key, value, adminID); err != nil {
		return apperror.Storage(err)
	}
	if s.rdb != nil {
		if err := s.rdb.Del(ctx, "settings:"+key).Err(); err != nil {
			s.logger.Warn("settings cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func (s *service) getInt(ctx context.Context, key string, fallback int) (int, error) {
	raw, found, err := s.get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !found {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

func (s *service) GetScannerState(ctx context.Context) (bool, error) {
	raw, _, err := s.get(ctx, KeyScannerState)
	if err != nil {
		return false, err
	}
	return raw == "on", nil
}

func (s *service) SetScannerState(ctx context.Context, on bool, adminID *uuid.UUID) error {
	value := "off"
	if on {
		value = "on"
	}
	return s.set(ctx, KeyScannerState, value, adminID)
}

func (s *service) GetEveningEnabled(ctx context.Context) (bool, error) {
	raw, _, err := s.get(ctx, KeyEveningEnabled)
	if err != nil {
		return false, err
	}
	return raw == "true", nil
}

func (s *service) SetEveningEnabled(ctx context.Context, enabled bool, adminID *uuid.UUID) error {
	return s.set(ctx, KeyEveningEnabled, strconv.FormatBool(enabled), adminID)
}

func (s *service) GetPresentCutoffTime(ctx context.Context) (string, error) {
	raw, found, err := s.get(ctx, KeyPresentCutoffTime)
	if err != nil {
		return "", err
	}
	if !found || raw == "" {
		return DefaultPresentCutoffTime, nil
	}
	return raw, nil
}

func (s *service) SetPresentCutoffTime(ctx context.Context, hhmm string, adminID *uuid.UUID) error {
	if !timeFormatRe.MatchString(hhmm) {
		return apperror.New(apperror.CodeInvalidInput, "Invalid time format. Use HH:MM", http.StatusBadRequest)
	}
	return s.set(ctx, KeyPresentCutoffTime, hhmm, adminID)
}

func (s *service) GetAttendanceCooldownMinutes(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyAttendanceCooldownMinutes, DefaultAttendanceCooldownMinutes)
}

func (s *service) GetDuplicateScanWindowSeconds(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyDuplicateScanWindowSeconds, DefaultDuplicateScanWindowSeconds)
}

func (s *service) SetDuplicateScanWindowSeconds(ctx context.Context, seconds int, adminID *uuid.UUID) error {
	if seconds < 0 {
		return apperror.New(apperror.CodeInvalidInput, "Window seconds must not be negative", http.StatusBadRequest)
	}
	return s.set(ctx, KeyDuplicateScanWindowSeconds, strconv.Itoa(seconds), adminID)
}

func (s *service) GetAutoApproveThresholdSeconds(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyAutoApproveThresholdSecs, DefaultAutoApproveThresholdSecs)
}

func (s *service) GetOfflineSyncIntervalMinutes(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyOfflineSyncIntervalMinutes, DefaultOfflineSyncIntervalMinutes)
}

func (s *service) GetSystemConfig(ctx context.Context) (SystemConfig, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return SystemConfig{}, apperror.Storage(err)
	}

	cfg := SystemConfig{
		ScannerEnabled:             all[KeyScannerState] == "on",
		EveningEnabled:             all[KeyEveningEnabled] == "true",
		PresentCutoffTime:          DefaultPresentCutoffTime,
		CooldownMinutes:            DefaultAttendanceCooldownMinutes,
		DuplicateScanWindowSeconds: DefaultDuplicateScanWindowSeconds,
		AutoApproveThresholdSecs:   DefaultAutoApproveThresholdSecs,
		OfflineSyncIntervalMinutes: DefaultOfflineSyncIntervalMinutes,
	}
	if v := all[KeyPresentCutoffTime]; v != "" {
		cfg.PresentCutoffTime = v
	}
	if n, err := strconv.Atoi(all[KeyAttendanceCooldownMinutes]); err == nil {
		cfg.CooldownMinutes = n
	}
	if n, err := strconv.Atoi(all[KeyDuplicateScanWindowSeconds]); err == nil {
		cfg.DuplicateScanWindowSeconds = n
	}
	if n, err := strconv.Atoi(all[KeyAutoApproveThresholdSecs]); err == nil {
		cfg.AutoApproveThresholdSecs = n
	}
	if n, err := strconv.Atoi(all[KeyOfflineSyncIntervalMinutes]); err == nil {
		cfg.OfflineSyncIntervalMinutes = n
	}
	return cfg, nil
}
