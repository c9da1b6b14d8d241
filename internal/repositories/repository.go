package repositories

import (
	"rentflow/internal/database"
)

type Repository struct {
	User            UserRepository
	Application     ApplicationRepository
	Inspection      InspectionRepository
	ConditionRecord ConditionRecordRepository
	Amendment       AmendmentRepository
}

func New(db database.DB) Repository {
	return Repository{
		User:            NewUserRepository(db.Cache.User),
		Application:     NewApplicationRepository(),
		Inspection:      NewInspectionRepository(db.Cache.Inspection),
		ConditionRecord: NewConditionRecordRepository(),
		Amendment:       NewAmendmentRepository(),
	}
}
