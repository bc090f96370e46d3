package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/ubs-backend/internal/model"
	"github.com/iliyamo/ubs-backend/internal/repository"
)

// BlockStore persists schedule blocks.  Blocks are created and deleted,
// never updated.  GetByID returns repository.ErrNotFound for an unknown id.
type BlockStore interface {
	BlockReader
	Create(ctx context.Context, b *model.ScheduleBlock) error
	GetByID(ctx context.Context, id uint64) (model.ScheduleBlock, error)
	Delete(ctx context.Context, id uint64) error
	ListByProfessional(ctx context.Context, professionalID uint64) ([]model.ScheduleBlock, error)
}

// BlockRequest asks for a block.  ProfessionalID zero means the caller's own
// agenda.
type BlockRequest struct {
	ProfessionalID uint64
	Start          time.Time
	End            time.Time
	Reason         *string
}

// BlockService manages schedule blocks.  A professional manages their own
// blocks; a GESTOR manages anyone's.
type BlockService struct {
	blocks        BlockStore
	professionals ProfessionalReader
}

func NewBlockService(blocks BlockStore, professionals ProfessionalReader) *BlockService {
	if blocks == nil || professionals == nil {
		panic("nil dependency passed to NewBlockService")
	}
	return &BlockService{blocks: blocks, professionals: professionals}
}

// Create inserts a block over [req.Start, req.End].
func (s *BlockService) Create(ctx context.Context, actor Actor, req BlockRequest) (model.ScheduleBlock, error) {
	if req.End.Before(req.Start) {
		return model.ScheduleBlock{}, ErrInvalidInterval
	}
	own, err := s.ownProfile(ctx, actor)
	if err != nil {
		return model.ScheduleBlock{}, err
	}

	target := req.ProfessionalID
	switch {
	case target == 0:
		if own == nil {
			return model.ScheduleBlock{}, ErrNotProfessional
		}
		target = own.ID
	case own != nil && own.ID == target:
	case actor.Role.CanManageAnyBlock():
		if _, err := s.professionals.GetByID(ctx, target); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return model.ScheduleBlock{}, ErrProviderNotFound
			}
			return model.ScheduleBlock{}, fmt.Errorf("load professional: %w", err)
		}
	default:
		return model.ScheduleBlock{}, ErrForbidden
	}

	b := model.ScheduleBlock{
		ProfessionalID: target,
		StartsAt:       req.Start.UTC(),
		EndsAt:         req.End.UTC(),
		Reason:         trimmedOrNil(req.Reason),
	}
	if err := s.blocks.Create(ctx, &b); err != nil {
		return model.ScheduleBlock{}, fmt.Errorf("create block: %w", err)
	}
	return b, nil
}

// List returns the blocks of professionalID, or of the caller when it is
// zero.  A caller without a professional profile asking for their own
// blocks gets an empty list.
func (s *BlockService) List(ctx context.Context, actor Actor, professionalID uint64) ([]model.ScheduleBlock, error) {
	if professionalID == 0 {
		own, err := s.ownProfile(ctx, actor)
		if err != nil {
			return nil, err
		}
		if own == nil {
			return []model.ScheduleBlock{}, nil
		}
		professionalID = own.ID
	} else if !actor.Role.CanViewAgenda() {
		return nil, ErrForbidden
	}
	out, err := s.blocks.ListByProfessional(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return out, nil
}

// Delete removes a block owned by the caller, or any block for a GESTOR.
func (s *BlockService) Delete(ctx context.Context, actor Actor, id uint64) error {
	b, err := s.blocks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBlockNotFound
		}
		return fmt.Errorf("load block: %w", err)
	}
	if !actor.Role.CanManageAnyBlock() {
		own, err := s.ownProfile(ctx, actor)
		if err != nil {
			return err
		}
		if own == nil || own.ID != b.ProfessionalID {
			return ErrForbidden
		}
	}
	if err := s.blocks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBlockNotFound
		}
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

// ownProfile returns the caller's professional profile, or nil if they have
// none.
func (s *BlockService) ownProfile(ctx context.Context, actor Actor) (*model.Professional, error) {
	p, err := s.professionals.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load own professional profile: %w", err)
	}
	return &p, nil
}
