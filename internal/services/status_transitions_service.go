package services

import "taskmarket/internal/models"

// Допустимые переходы статусов задачи (управляет заказчик).
// Модерация идёт отдельно через admin_status.
var TaskTransitions = map[models.TaskStatus]map[models.TaskStatus]bool{
	models.TaskActive:    {models.TaskPaused: true, models.TaskCompleted: true, models.TaskCancelled: true},
	models.TaskPaused:    {models.TaskActive: true, models.TaskCancelled: true},
	models.TaskCompleted: {},
	models.TaskCancelled: {},
}

// ModerationTransitions: a rejected task can be re-approved after the giver
// fixes it, an approved one can still be pulled.
var ModerationTransitions = map[models.AdminStatus]map[models.AdminStatus]bool{
	models.AdminPending:  {models.AdminApproved: true, models.AdminRejected: true},
	models.AdminApproved: {models.AdminRejected: true},
	models.AdminRejected: {models.AdminApproved: true},
}

func canTransition[S comparable](current, to S, table map[S]map[S]bool) bool {
	nexts, ok := table[current]
	if !ok {
		return false
	}
	return nexts[to]
}
