package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ayesh156/eco-system-sub002/internal/settlement"
)

const creditSummaryTTL = 60 * time.Second

type Service struct {
	repo  Repository
	cache *redis.Client
	sf    singleflight.Group
}

func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	if req.Code == "" {
		code, err := s.generateCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate customer code: %w", err)
		}
		req.Code = code
	}

	existing, err := s.repo.GetByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing customer: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	customer := Customer{
		Code:          strings.ToUpper(req.Code),
		Name:          req.Name,
		Phone:         req.Phone,
		WhatsAppPhone: req.WhatsAppPhone,
		Email:         req.Email,
		Address:       req.Address,
		CreditLimit:   req.CreditLimit,
		CreditBalance: 0,
		CreditStatus:  settlement.CreditClear,
		IsActive:      true,
		Notes:         req.Notes,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, customer)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	customer.ID = id
	return &customer, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.WhatsAppPhone != nil {
		updates["whatsapp_phone"] = *req.WhatsAppPhone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.CreditLimit != nil {
		updates["credit_limit"] = *req.CreditLimit
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}

	s.InvalidateCreditSummary(ctx, id)
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) ListOverdue(ctx context.Context) ([]Customer, error) {
	return s.repo.ListOverdue(ctx)
}

// GetCreditSummary serves the aggregate credit view from a short redis
// cache. Concurrent misses for one customer collapse into a single query.
func (s *Service) GetCreditSummary(ctx context.Context, id int64) (*CreditSummary, error) {
	key := creditSummaryKey(id)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var summary CreditSummary
			if err := json.Unmarshal(raw, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		summary, err := s.repo.GetCreditSummary(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(summary); err == nil {
				s.cache.Set(ctx, key, raw, creditSummaryTTL)
			}
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CreditSummary), nil
}

// InvalidateCreditSummary drops the cached summary after a settlement or
// an account edit.
func (s *Service) InvalidateCreditSummary(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	s.cache.Del(ctx, creditSummaryKey(id))
}

func creditSummaryKey(id int64) string {
	return fmt.Sprintf("customers:credit:%d", id)
}

func (s *Service) generateCode(ctx context.Context) (string, error) {
	return s.repo.GenerateCode(ctx)
}
