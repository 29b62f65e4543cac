package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectLead       = "lead"
	ObjectCommission = "commission"
	ObjectPayroll    = "payroll"
	ObjectRestaurant = "restaurant"
	ObjectAnalytics  = "analytics"
	ObjectUser       = "user"
	ObjectBilling    = "billing"
)

const (
	ActionLeadView    = "lead.view"
	ActionLeadViewAll = "lead.view_all"
	ActionLeadCreate  = "lead.create"
	ActionLeadUpdate  = "lead.update"
	ActionLeadClaim   = "lead.claim"
	ActionLeadAssign  = "lead.assign"
	ActionLeadSweep   = "lead.sweep"

	ActionCommissionQuote     = "commission.quote"
	ActionCommissionView      = "commission.view"
	ActionCommissionViewAll   = "commission.view_all"
	ActionCommissionRecord    = "commission.record"
	ActionCommissionRecordAny = "commission.record_any"

	ActionPayrollView  = "payroll.view"
	ActionPayrollClose = "payroll.close"
	ActionPayrollSend  = "payroll.send"

	ActionRestaurantView       = "restaurant.view"
	ActionRestaurantCreate     = "restaurant.create"
	ActionRestaurantChangeTier = "restaurant.change_tier"

	ActionAnalyticsView = "analytics.view"

	ActionUserView   = "user.view"
	ActionUserCreate = "user.create"

	ActionBillingCheckout = "billing.checkout"
)

// Service decides whether an authenticated actor may perform an action.
type Service interface {
	Authorize(ctx context.Context, role, actorID, object, action string) error
	Allowed(role, object, action string) bool
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role, actorID, object, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	actorID = strings.TrimSpace(actorID)
	if role == "" || actorID == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor_id", actorID),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// Allowed checks a role grant without an actor, for filtering decisions
// such as whether a rep may see other reps' leads.
func (s *ServiceImpl) Allowed(role, object, action string) bool {
	ok, err := s.enforcer.Enforce(roleSubject(strings.ToLower(strings.TrimSpace(role))), object, action)
	return err == nil && ok
}

func roleSubject(role string) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:sales_rep", ObjectLead, ActionLeadView},
		{"role:sales_rep", ObjectLead, ActionLeadCreate},
		{"role:sales_rep", ObjectLead, ActionLeadUpdate},
		{"role:sales_rep", ObjectLead, ActionLeadClaim},
		{"role:sales_rep", ObjectCommission, ActionCommissionQuote},
		{"role:sales_rep", ObjectCommission, ActionCommissionView},
		{"role:sales_rep", ObjectCommission, ActionCommissionRecord},
		{"role:sales_rep", ObjectPayroll, ActionPayrollView},
		{"role:sales_rep", ObjectRestaurant, ActionRestaurantView},
		{"role:sales_rep", ObjectRestaurant, ActionRestaurantCreate},
		{"role:sales_rep", ObjectAnalytics, ActionAnalyticsView},
		{"role:sales_rep", ObjectBilling, ActionBillingCheckout},

		{"role:sales_manager", ObjectLead, ActionLeadViewAll},
		{"role:sales_manager", ObjectLead, ActionLeadAssign},
		{"role:sales_manager", ObjectCommission, ActionCommissionViewAll},
		{"role:sales_manager", ObjectCommission, ActionCommissionRecordAny},
		{"role:sales_manager", ObjectUser, ActionUserView},

		{"role:admin", ObjectLead, ActionLeadSweep},
		{"role:admin", ObjectPayroll, ActionPayrollClose},
		{"role:admin", ObjectPayroll, ActionPayrollSend},
		{"role:admin", ObjectRestaurant, ActionRestaurantChangeTier},
		{"role:admin", ObjectUser, ActionUserCreate},
	}
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	inherits := [][]string{
		{"role:sales_manager", "role:sales_rep"},
		{"role:admin", "role:sales_manager"},
	}
	for _, rule := range inherits {
		has, err := enforcer.HasGroupingPolicy(rule)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(rule); err != nil {
			return err
		}
	}
	return nil
}
