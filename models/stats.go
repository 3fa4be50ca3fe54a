package models

// TaskStats summarizes a task list the way the dashboard header shows it.
type TaskStats struct {
	Total         int                `json:"total" yaml:"total"`
	TasksByStatus map[TaskStatus]int `json:"tasksByStatus" yaml:"tasksByStatus"`
	InProgress    int                `json:"inProgress" yaml:"inProgress"`
	Completed     int                `json:"completed" yaml:"completed"`
	Overdue       int                `json:"overdue" yaml:"overdue"`
}

func ComputeStats(tasks []Task, today Date) TaskStats {
	stats := TaskStats{
		Total:         len(tasks),
		TasksByStatus: make(map[TaskStatus]int, len(Statuses)),
	}
	for _, s := range Statuses {
		stats.TasksByStatus[s] = 0
	}
	for _, t := range tasks {
		stats.TasksByStatus[t.Status]++
		if t.IsOverdue(today) {
			stats.Overdue++
		}
	}
	stats.InProgress = stats.TasksByStatus[StatusInProgress]
	stats.Completed = stats.TasksByStatus[StatusCompleted]
	return stats
}
