package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mercaplaza/internal/common"
	"mercaplaza/internal/models"
	"mercaplaza/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultConfigCacheTTL bounds how stale a cached config read can be on
// processes that did not perform the write.
const DefaultConfigCacheTTL = 60 * time.Second

const maxRatePercent = 50

// ConfigServiceInterface is the platform configuration store: commission and
// fee rates plus the invoice numbering sequences. Reads go through a short
// TTL in-process cache; every write evicts its key before returning so the
// writing process observes its own write immediately.
type ConfigServiceInterface interface {
	Get(ctx context.Context, key string) (*models.PlatformConfig, error)
	List(ctx context.Context, category *string) ([]*models.PlatformConfig, error)
	GetRate(ctx context.Context, key string) (float64, error)
	NextInvoiceSequenceNumber(ctx context.Context, invoiceType string) (*models.InvoiceSequence, error)
	Create(ctx context.Context, key string, value json.RawMessage, category string, actor *uuid.UUID) (*models.PlatformConfig, error)
	Update(ctx context.Context, key string, value json.RawMessage, actor *uuid.UUID) (*models.PlatformConfig, error)
	Delete(ctx context.Context, key string) error
	ClearCache(keys ...string)
}

type cachedConfig struct {
	config    *models.PlatformConfig
	expiresAt time.Time
}

type configService struct {
	repo  repositories.PlatformConfigRepository
	ttl   time.Duration
	mu    sync.RWMutex
	cache map[string]cachedConfig
}

func NewConfigService(repo repositories.PlatformConfigRepository, ttl time.Duration) ConfigServiceInterface {
	if ttl <= 0 {
		ttl = DefaultConfigCacheTTL
	}
	return &configService{
		repo:  repo,
		ttl:   ttl,
		cache: make(map[string]cachedConfig),
	}
}

func (s *configService) Get(ctx context.Context, key string) (*models.PlatformConfig, error) {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.config, nil
	}

	config, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", key, err)
	}
	if config == nil {
		return nil, common.NewNotFoundError(fmt.Sprintf("config %q", key))
	}

	s.mu.Lock()
	s.cache[key] = cachedConfig{config: config, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return config, nil
}

func (s *configService) List(ctx context.Context, category *string) ([]*models.PlatformConfig, error) {
	return s.repo.List(ctx, category)
}

func (s *configService) GetRate(ctx context.Context, key string) (float64, error) {
	config, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	var rate models.RateValue
	if err := json.Unmarshal(config.Value, &rate); err != nil {
		return 0, fmt.Errorf("config %q is not a rate value: %w", key, err)
	}
	return rate.Rate, nil
}

func sequenceKeyFor(invoiceType string) (string, error) {
	switch invoiceType {
	case models.InvoiceTypeBuyerFee:
		return models.ConfigKeyInvoiceNumberingFee, nil
	case models.InvoiceTypeSellerCommission:
		return models.ConfigKeyInvoiceNumberingCom, nil
	default:
		return "", common.NewValidationError("invoice_type", fmt.Sprintf("unknown invoice type %q", invoiceType))
	}
}

// NextInvoiceSequenceNumber draws the next number from the per-type stream.
// The increment happens in a single atomic statement in the repository, which
// also hands back the prefix and padding of the same row so callers never mix
// a fresh number with stale formatting. The cached copy of the key is evicted
// so reads on this process reflect the new counter.
func (s *configService) NextInvoiceSequenceNumber(ctx context.Context, invoiceType string) (*models.InvoiceSequence, error) {
	key, err := sequenceKeyFor(invoiceType)
	if err != nil {
		return nil, err
	}
	s.ClearCache(key)
	seq, err := s.repo.NextSequenceNumber(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError(fmt.Sprintf("config %q", key))
		}
		return nil, fmt.Errorf("advance invoice sequence %q: %w", key, err)
	}
	return seq, nil
}

func validateConfigValue(key string, value json.RawMessage) error {
	switch key {
	case models.ConfigKeySellerCommissionRate, models.ConfigKeyBuyerPlatformFeeRate:
		var rate models.RateValue
		if err := json.Unmarshal(value, &rate); err != nil {
			return common.NewValidationError(key, "must be an object {\"rate\": percent}")
		}
		if rate.Rate < 0 || rate.Rate > maxRatePercent {
			return common.NewValidationError(key, fmt.Sprintf("rate must be between 0 and %d", maxRatePercent))
		}
	case models.ConfigKeyInvoiceNumberingFee, models.ConfigKeyInvoiceNumberingCom:
		var seq models.InvoiceSequence
		if err := json.Unmarshal(value, &seq); err != nil {
			return common.NewValidationError(key, "must be an object {prefix, current, padding}")
		}
		if seq.Prefix == "" {
			return common.NewValidationError(key, "prefix must not be empty")
		}
		if seq.Current < 1 {
			return common.NewValidationError(key, "current must be at least 1")
		}
		if seq.Padding < 1 {
			return common.NewValidationError(key, "padding must be at least 1")
		}
	default:
		var obj map[string]interface{}
		if err := json.Unmarshal(value, &obj); err != nil || obj == nil {
			return common.NewValidationError(key, "must be a non-null JSON object")
		}
	}
	return nil
}

func (s *configService) Create(ctx context.Context, key string, value json.RawMessage, category string, actor *uuid.UUID) (*models.PlatformConfig, error) {
	if err := common.ValidateRequiredString(key, "key"); err != nil {
		return nil, err
	}
	if err := validateConfigValue(key, value); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check existing config %q: %w", key, err)
	}
	if existing != nil {
		return nil, common.NewValidationError("key", fmt.Sprintf("config %q already exists", key))
	}
	if category == "" {
		category = models.ConfigCategoryGeneral
	}

	config := &models.PlatformConfig{
		Key:       key,
		Value:     value,
		Category:  category,
		UpdatedBy: actor,
	}
	if err := s.repo.Create(ctx, config); err != nil {
		return nil, fmt.Errorf("create config %q: %w", key, err)
	}
	s.ClearCache(key)
	return config, nil
}

func (s *configService) Update(ctx context.Context, key string, value json.RawMessage, actor *uuid.UUID) (*models.PlatformConfig, error) {
	if err := validateConfigValue(key, value); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", key, err)
	}
	if existing == nil {
		return nil, common.NewNotFoundError(fmt.Sprintf("config %q", key))
	}

	// A numbering stream only moves forward. Rewinding current below the
	// live counter would reissue invoice numbers already handed out.
	if key == models.ConfigKeyInvoiceNumberingFee || key == models.ConfigKeyInvoiceNumberingCom {
		var oldSeq, newSeq models.InvoiceSequence
		if json.Unmarshal(value, &newSeq) == nil && json.Unmarshal(existing.Value, &oldSeq) == nil {
			if newSeq.Current < oldSeq.Current {
				return nil, common.NewValidationError(key,
					fmt.Sprintf("current cannot be rewound below the live counter %d", oldSeq.Current))
			}
		}
	}

	existing.Value = value
	existing.UpdatedBy = actor
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update config %q: %w", key, err)
	}
	// Evict before returning so the next read on this process sees the write.
	s.ClearCache(key)
	return existing, nil
}

func (s *configService) Delete(ctx context.Context, key string) error {
	existing, err := s.repo.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load config %q: %w", key, err)
	}
	if existing == nil {
		return common.NewNotFoundError(fmt.Sprintf("config %q", key))
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete config %q: %w", key, err)
	}
	s.ClearCache(key)
	return nil
}

// ClearCache evicts the given keys, or the whole cache when none are given.
func (s *configService) ClearCache(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(keys) == 0 {
		s.cache = make(map[string]cachedConfig)
		return
	}
	for _, key := range keys {
		delete(s.cache, key)
	}
}
