// Package authz carries the calling actor through a context and decides
// which roles may perform each workflow operation.
package authz

import (
	"context"
	"strings"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/domain"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Operation string

const (
	OpCreateDeposit          Operation = "create_deposit"
	OpConfirm                Operation = "confirm"
	OpPlaceManufacturerOrder Operation = "place_manufacturer_order"
	OpMarkArrived            Operation = "mark_arrived"
	OpNotifyStaff            Operation = "notify_staff"
	OpAcknowledge            Operation = "acknowledge"
	OpCancel                 Operation = "cancel"
	OpDeleteDeposit          Operation = "delete_deposit"
	OpSettleFull             Operation = "settle_full"
	OpSettleInstallment      Operation = "settle_installment"
	OpAdvanceTask            Operation = "advance_task"
	OpRead                   Operation = "read"
)

var roles = map[Operation][]domain.Role{
	OpCreateDeposit:          {domain.RoleDealerStaff},
	OpConfirm:                {domain.RoleDealerStaff},
	OpPlaceManufacturerOrder: {domain.RoleDealerManager},
	OpMarkArrived:            {domain.RoleDealerManager},
	OpNotifyStaff:            {domain.RoleDealerManager},
	OpAcknowledge:            {domain.RoleDealerStaff},
	OpCancel:                 {domain.RoleDealerStaff, domain.RoleDealerManager},
	OpDeleteDeposit:          {domain.RoleDealerManager, domain.RoleEVMAdmin},
	OpSettleFull:             {domain.RoleDealerStaff},
	OpSettleInstallment:      {domain.RoleDealerStaff},
	OpAdvanceTask:            {domain.RoleEVMStaff},
}

// Require returns the actor in ctx when its role may perform op. OpRead
// accepts any known role.
func Require(ctx context.Context, op Operation) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || strings.TrimSpace(actor.Name) == "" || !actor.Role.Valid() {
		return domain.Actor{}, apperr.Forbidden("%s requires an authenticated actor", op)
	}
	if op == OpRead {
		return actor, nil
	}
	if !Allowed(op, actor.Role) {
		return domain.Actor{}, &apperr.Error{
			Code:     apperr.CodeForbidden,
			Message:  "role not permitted for " + string(op),
			Expected: joinRoles(roles[op]),
			Actual:   string(actor.Role),
		}
	}
	return actor, nil
}

func Allowed(op Operation, role domain.Role) bool {
	for _, allowed := range roles[op] {
		if allowed == role {
			return true
		}
	}
	return false
}

func joinRoles(rs []domain.Role) string {
	names := make([]string, 0, len(rs))
	for _, r := range rs {
		names = append(names, string(r))
	}
	return strings.Join(names, " or ")
}
