package usecase

import (
	"context"
	"errors"
	"time"

	"go-clinic-queue/internal/converter"
	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/errs"
	"go-clinic-queue/internal/domain/repository"
	"go-clinic-queue/internal/notifier"
	"go-clinic-queue/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidSchedule = errors.New("invalid service date or time")
	ErrUnderpaid       = errors.New("amount paid does not cover total amount")
	ErrPaymentClosed   = errors.New("payment already completed")
)

type ServiceUsecase interface {
	CreateService(ctx context.Context, actor entity.Actor, req *dto.CreateServiceRequest) (*dto.ServiceResponse, error)
	GetService(ctx context.Context, id uuid.UUID) (*dto.ServiceDetailResponse, error)
	StartService(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.ServiceResponse, error)
	CompleteService(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.ServiceResponse, error)
	CancelService(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.ServiceResponse, error)
	AddLineItem(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.AddLineItemRequest) (*dto.ServiceDetailResponse, error)
	UpdatePaymentStatus(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.UpdatePaymentStatusRequest) (*dto.ServiceResponse, error)
	GetFinancialStatus(ctx context.Context, id uuid.UUID) (*dto.FinancialStatusResponse, error)
}

type serviceUsecase struct {
	committer
	clock        service.Clock
	serviceRepo  repository.ServiceRepository
	queueRepo    repository.QueueEntryRepository
	productRepo  repository.ProductRepository
	clientRepo   repository.ClientRepository
	auditService service.AuditService
}

func NewServiceUsecase(
	log *logrus.Logger,
	txm repository.Transactor,
	clock service.Clock,
	serviceRepo repository.ServiceRepository,
	queueRepo repository.QueueEntryRepository,
	productRepo repository.ProductRepository,
	clientRepo repository.ClientRepository,
	auditService service.AuditService,
	publisher notifier.Publisher,
) ServiceUsecase {
	return &serviceUsecase{
		committer:    committer{log: log, txm: txm, publisher: publisher},
		clock:        clock,
		serviceRepo:  serviceRepo,
		queueRepo:    queueRepo,
		productRepo:  productRepo,
		clientRepo:   clientRepo,
		auditService: auditService,
	}
}

func serviceError(kind error, op string, s *entity.Service) *errs.Error {
	return errs.New(kind, op, string(entity.EntityService), s.ID.String(), string(s.Status))
}

func serviceNotFound(op string, id uuid.UUID) *errs.Error {
	return errs.New(errs.ErrNotFound, op, string(entity.EntityService), id.String(), "")
}

// CreateService books a scheduled service for a registered client
func (u *serviceUsecase) CreateService(ctx context.Context, actor entity.Actor, req *dto.CreateServiceRequest) (*dto.ServiceResponse, error) {
	serviceDate, err := time.Parse(time.DateOnly, req.ServiceDate)
	if err != nil {
		return nil, ErrInvalidSchedule
	}
	if _, err := time.Parse("15:04", req.ServiceTime); err != nil {
		return nil, ErrInvalidSchedule
	}

	client, err := u.clientRepo.FindByID(ctx, req.ClientID)
	if err != nil {
		u.log.Warnf("Failed to find client %s: %+v", req.ClientID, err)
		return nil, errs.Storage("create service", err)
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	svc := &entity.Service{
		ClientID:      req.ClientID,
		ServiceDate:   serviceDate,
		ServiceTime:   req.ServiceTime,
		ServiceType:   req.ServiceType,
		Status:        entity.ServiceStatusScheduled,
		PaymentStatus: entity.PaymentStatusPending,
		TotalAmount:   decimal.Zero,
		Notes:         req.Notes,
		CreatedBy:     actor.UserID,
		Version:       1,
	}

	err = u.run(ctx, u.clock.Now(), func(ctx context.Context, cs *changeSet) error {
		if err := u.serviceRepo.Create(ctx, svc); err != nil {
			return errs.Storage("create service", err)
		}
		if err := u.auditService.LogTransition(ctx, actor, service.Transition{
			Action:     entity.AuditActionServiceCreate,
			EntityType: entity.EntityService,
			EntityID:   svc.ID,
			To:         string(svc.Status),
		}); err != nil {
			return errs.Storage("create service", err)
		}
		return cs.service(entity.ChangeInsert, svc)
	})
	if err != nil {
		u.log.Warnf("Failed to create service: %+v", err)
		return nil, err
	}

	u.log.Infof("Service created: id=%s, client=%s, date=%s", svc.ID, svc.ClientID, req.ServiceDate)
	return converter.ServiceToResponse(svc), nil
}

func (u *serviceUsecase) GetService(ctx context.Context, id uuid.UUID) (*dto.ServiceDetailResponse, error) {
	detail, err := u.serviceRepo.FindDetail(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find service %s: %+v", id, err)
		return nil, errs.Storage("get service", err)
	}
	if detail == nil {
		return nil, serviceNotFound("get service", id)
	}
	return converter.ServiceDetailToResponse(detail), nil
}

// transition applies one guarded status change. guard rejects the transition on the
// locked row, apply performs the conditional update, after runs extra writes in the
// same transaction.
func (u *serviceUsecase) transition(
	ctx context.Context,
	actor entity.Actor,
	op, action string,
	id uuid.UUID,
	guard func(*entity.Service) error,
	apply func(ctx context.Context, s *entity.Service, at time.Time) (int64, error),
	after func(ctx context.Context, cs *changeSet, before, updated *entity.Service) error,
) (*entity.Service, error) {
	var updated *entity.Service
	now := u.clock.Now()

	err := u.run(ctx, now, func(ctx context.Context, cs *changeSet) error {
		current, err := u.serviceRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return errs.Storage(op, err)
		}
		if current == nil {
			return serviceNotFound(op, id)
		}
		if err := guard(current); err != nil {
			return err
		}

		rows, err := apply(ctx, current, now)
		if err != nil {
			return errs.Storage(op, err)
		}

		updated, err = u.serviceRepo.FindByID(ctx, id)
		if err != nil {
			return errs.Storage(op, err)
		}
		if updated == nil {
			return serviceNotFound(op, id)
		}
		if rows == 0 {
			return serviceError(errs.ErrInvalidTransition, op, updated)
		}

		if err := u.auditService.LogTransition(ctx, actor, service.Transition{
			Action:     action,
			EntityType: entity.EntityService,
			EntityID:   id,
			From:       string(current.Status),
			To:         string(updated.Status),
		}); err != nil {
			return errs.Storage(op, err)
		}
		if after != nil {
			if err := after(ctx, cs, current, updated); err != nil {
				return err
			}
		}
		return cs.service(entity.ChangeUpdate, updated)
	})
	if err != nil {
		u.log.Warnf("Failed to %s %s: %+v", op, id, err)
		return nil, err
	}
	return updated, nil
}

func (u *serviceUsecase) StartService(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.ServiceResponse, error) {
	const op = "start service"
	updated, err := u.transition(ctx, actor, op, entity.AuditActionServiceStart, id,
		func(s *entity.Service) error {
			if !s.Status.CanTransitionTo(entity.ServiceStatusInProgress) {
				return serviceError(errs.ErrInvalidTransition, op, s)
			}
			return nil
		},
		func(ctx context.Context, s *entity.Service, _ time.Time) (int64, error) {
			return u.serviceRepo.UpdateStatus(ctx, s.ID, s.Status, entity.ServiceStatusInProgress)
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return converter.ServiceToResponse(updated), nil
}

// CompleteService stamps completion and recomputes the total in a single update
func (u *serviceUsecase) CompleteService(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.ServiceResponse, error) {
	const op = "complete service"
	updated, err := u.transition(ctx, actor, op, entity.AuditActionServiceComplete, id,
		func(s *entity.Service) error {
			if !s.CanComplete() {
				return serviceError(errs.ErrInvalidTransition, op, s)
			}
			return nil
		},
		func(ctx context.Context, s *entity.Service, at time.Time) (int64, error) {
			return u.serviceRepo.Complete(ctx, s.ID, actor.UserID, at)
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	u.log.Infof("Service completed: id=%s, total=%s", updated.ID, updated.TotalAmount.StringFixed(2))
	return converter.ServiceToResponse(updated), nil
}

// CancelService cancels the service and withdraws its open queue entries in the same transaction
func (u *serviceUsecase) CancelService(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.ServiceResponse, error) {
	const op = "cancel service"
	updated, err := u.transition(ctx, actor, op, entity.AuditActionServiceCancel, id,
		func(s *entity.Service) error {
			if !s.CanCancel() {
				return serviceError(errs.ErrInvalidTransition, op, s)
			}
			return nil
		},
		func(ctx context.Context, s *entity.Service, _ time.Time) (int64, error) {
			return u.serviceRepo.Cancel(ctx, s.ID)
		},
		func(ctx context.Context, cs *changeSet, _, _ *entity.Service) error {
			return u.withdrawEntries(ctx, cs, actor, id)
		},
	)
	if err != nil {
		return nil, err
	}

	u.log.Infof("Service cancelled: id=%s", updated.ID)
	return converter.ServiceToResponse(updated), nil
}

func (u *serviceUsecase) withdrawEntries(ctx context.Context, cs *changeSet, actor entity.Actor, serviceID uuid.UUID) error {
	const op = "withdraw queue entry"
	entries, err := u.queueRepo.ListOpenByService(ctx, serviceID)
	if err != nil {
		return errs.Storage(op, err)
	}

	for _, entry := range entries {
		rows, err := u.queueRepo.MarkDone(ctx, entry.ID, entry.Status, entity.QueueOutcomeWithdrawn, cs.at)
		if err != nil {
			return errs.Storage(op, err)
		}
		if rows == 0 {
			// changed underneath us by a writer outside the engine
			return errs.New(errs.ErrStorageFailure, op, string(entity.EntityQueueEntry), entry.ID.String(), string(entry.Status))
		}

		withdrawn, err := u.queueRepo.FindByID(ctx, entry.ID)
		if err != nil {
			return errs.Storage(op, err)
		}
		if err := u.auditService.LogTransition(ctx, actor, service.Transition{
			Action:     entity.AuditActionQueueWithdraw,
			EntityType: entity.EntityQueueEntry,
			EntityID:   entry.ID,
			From:       string(entry.Status),
			To:         string(withdrawn.Status),
			Metadata:   entity.JSON{"outcome": string(entity.QueueOutcomeWithdrawn), "service_id": serviceID.String()},
		}); err != nil {
			return errs.Storage(op, err)
		}
		if err := cs.queueEntry(entity.ChangeUpdate, withdrawn); err != nil {
			return err
		}
	}
	return nil
}

// AddLineItem records a billable item on a service that is still open and recomputes its total
func (u *serviceUsecase) AddLineItem(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.AddLineItemRequest) (*dto.ServiceDetailResponse, error) {
	const op = "add line item"

	product, err := u.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		u.log.Warnf("Failed to find product %s: %+v", req.ProductID, err)
		return nil, errs.Storage(op, err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	unitPrice := product.Price
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	item := &entity.ServiceItem{
		ServiceID: id,
		ProductID: product.ID,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice,
		Discount:  req.Discount,
		Subtotal:  entity.ComputeSubtotal(req.Quantity, unitPrice, req.Discount),
		Notes:     req.Notes,
	}

	_, err = u.transition(ctx, actor, op, entity.AuditActionServiceItemAdd, id,
		func(s *entity.Service) error {
			if s.IsTerminal() {
				return serviceError(errs.ErrInvalidTransition, op, s)
			}
			if s.PaymentStatus == entity.PaymentStatusCompleted {
				e := serviceError(errs.ErrInvalidTransition, op, s)
				e.Err = ErrPaymentClosed
				return e
			}
			return nil
		},
		func(ctx context.Context, s *entity.Service, _ time.Time) (int64, error) {
			if err := u.serviceRepo.AddItem(ctx, item); err != nil {
				return 0, err
			}
			if err := u.serviceRepo.RecomputeTotal(ctx, s.ID); err != nil {
				return 0, err
			}
			return 1, nil
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	return u.GetService(ctx, id)
}

// UpdatePaymentStatus is called by the billing collaborator. Payment corrections are
// accepted on terminal services.
func (u *serviceUsecase) UpdatePaymentStatus(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.UpdatePaymentStatusRequest) (*dto.ServiceResponse, error) {
	const op = "update payment status"
	target := entity.PaymentStatus(req.PaymentStatus)
	if !target.IsValid() {
		return nil, errs.New(errs.ErrInvalidTransition, op, string(entity.EntityService), id.String(), req.PaymentStatus)
	}

	var updated *entity.Service
	err := u.run(ctx, u.clock.Now(), func(ctx context.Context, cs *changeSet) error {
		current, err := u.serviceRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return errs.Storage(op, err)
		}
		if current == nil {
			return serviceNotFound(op, id)
		}
		if !current.PaymentStatus.CanTransitionTo(target) {
			return errs.New(errs.ErrInvalidTransition, op, string(entity.EntityService), id.String(), string(current.PaymentStatus))
		}
		if target == entity.PaymentStatusCompleted && req.AmountPaid.LessThan(current.TotalAmount) {
			e := errs.New(errs.ErrInvalidTransition, op, string(entity.EntityService), id.String(), string(current.PaymentStatus))
			e.Err = ErrUnderpaid
			return e
		}

		rows, err := u.serviceRepo.UpdatePaymentStatus(ctx, id, current.PaymentStatus, target)
		if err != nil {
			return errs.Storage(op, err)
		}
		if rows == 0 {
			return errs.New(errs.ErrInvalidTransition, op, string(entity.EntityService), id.String(), string(current.PaymentStatus))
		}

		updated, err = u.serviceRepo.FindByID(ctx, id)
		if err != nil {
			return errs.Storage(op, err)
		}
		if err := u.auditService.LogTransition(ctx, actor, service.Transition{
			Action:     entity.AuditActionPaymentUpdate,
			EntityType: entity.EntityService,
			EntityID:   id,
			From:       string(current.PaymentStatus),
			To:         string(target),
			Metadata:   entity.JSON{"amount_paid": req.AmountPaid.StringFixed(2)},
		}); err != nil {
			return errs.Storage(op, err)
		}
		return cs.service(entity.ChangeUpdate, updated)
	})
	if err != nil {
		u.log.Warnf("Failed to %s %s: %+v", op, id, err)
		return nil, err
	}
	return converter.ServiceToResponse(updated), nil
}

func (u *serviceUsecase) GetFinancialStatus(ctx context.Context, id uuid.UUID) (*dto.FinancialStatusResponse, error) {
	svc, err := u.serviceRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find service %s: %+v", id, err)
		return nil, errs.Storage("financial status", err)
	}
	if svc == nil {
		return nil, serviceNotFound("financial status", id)
	}

	return &dto.FinancialStatusResponse{
		ServiceID:         svc.ID,
		PaymentStatus:     string(svc.PaymentStatus),
		TotalAmount:       svc.TotalAmount,
		FinanciallyClosed: svc.IsFinanciallyClosed(),
	}, nil
}
