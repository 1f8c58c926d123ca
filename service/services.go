package service

import (
	"database/sql"

	"github.com/gestore-cpu/gestione-doc-security/alert"
	"github.com/gestore-cpu/gestione-doc-security/audit"
	"github.com/gestore-cpu/gestione-doc-security/config"
	"github.com/gestore-cpu/gestione-doc-security/dao"
	pdp_dao "github.com/gestore-cpu/gestione-doc-security/pdp/dao"
	"github.com/gestore-cpu/gestione-doc-security/pdp/engine"
	"github.com/gestore-cpu/gestione-doc-security/permission"
	"github.com/gestore-cpu/gestione-doc-security/risk"
	"github.com/gestore-cpu/gestione-doc-security/util"
)

type Services struct {
	Policy IPolicyService
	Access IAccessService
	Alert  IAlertService
}

func InitializeServices(
	sqlDB *sql.DB,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	policyDAO := dao.NewPolicyDAO(sqlDB)
	userDAO := dao.NewUserDAO(sqlDB)
	documentDAO := dao.NewDocumentDAO(sqlDB)
	requestDAO := dao.NewRequestDAO(sqlDB)
	alertDAO := dao.NewAlertDAO(sqlDB)

	permFilter := permission.NewFilter(documentDAO)
	evaluator := engine.NewEvaluator(pdp_dao.NewCachedPolicyProvider(policyDAO))

	classifier := risk.NewHTTPClassifier(config.GetString("risk.classifierURL"))
	scorer := risk.NewScorer(
		requestDAO, userDAO, documentDAO, classifier,
		config.GetDuration("risk.classifierTimeout"),
		config.GetInt("risk.highRiskThreshold"),
	)

	alertEngine := alert.NewEngine(auditService, alertDAO, userDAO, documentDAO, notificationSvc, alert.Config{
		BurstThreshold:    config.GetInt("alert.burstThreshold"),
		BurstWindow:       config.GetDuration("alert.burstWindow"),
		DedupWindow:       config.GetDuration("alert.dedupWindow"),
		NewSourceLookback: config.GetDuration("alert.newSourceLookback"),
	})

	services := &Services{
		Policy: NewPolicyService(policyDAO, validationUtil, auditService, notificationSvc, eventBus),
		Access: NewAccessService(requestDAO, userDAO, documentDAO, permFilter, evaluator, scorer, alertEngine, auditService, validationUtil, notificationSvc, eventBus),
		Alert:  NewAlertService(alertDAO, auditService),
	}

	return services, nil
}
