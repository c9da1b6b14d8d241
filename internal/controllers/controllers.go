package controllers

import (
	"rentflow/internal/events"
	"rentflow/internal/repositories"
	"rentflow/internal/services"

	amendmentController "rentflow/internal/controllers/amendment"
	inspectionController "rentflow/internal/controllers/inspection"
	signingController "rentflow/internal/controllers/signing"
)

type Controllers struct {
	Inspection inspectionController.InspectionControllerInterface
	Signing    signingController.SigningControllerInterface
	Amendment  amendmentController.AmendmentControllerInterface
}

func New(
	services services.Service,
	repos repositories.Repository,
	eventBus events.Publisher,
) Controllers {
	return Controllers{
		Inspection: inspectionController.New(repos, services),
		Signing:    signingController.New(repos, services, eventBus),
		Amendment:  amendmentController.New(repos, services, eventBus),
	}
}
