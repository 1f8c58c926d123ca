package controller

import "github.com/gestore-cpu/gestione-doc-security/service"

type Controllers struct {
	Policy *PolicyController
	Access *AccessController
	Alert  *AlertController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Policy: NewPolicyController(services.Policy),
		Access: NewAccessController(services.Access),
		Alert:  NewAlertController(services.Alert),
	}
}
