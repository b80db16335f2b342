package model

// Project owns task categories and tasks.
type Project struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}

// TaskCategory groups the tasks of a project.
type TaskCategory struct {
	ID        uint    `gorm:"primarykey" json:"id"`
	ProjectID uint    `gorm:"not null;index" json:"project_id"`
	Project   Project `gorm:"foreignKey:ProjectID" json:"project"`
	Name      string  `gorm:"type:varchar(50);not null" json:"name"`
}

// Worker is a person tasks can be assigned to.
type Worker struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	Name   string `gorm:"type:varchar(50);not null" json:"name"`
	Avatar string `gorm:"type:varchar(255)" json:"avatar"`
}

// WorkerProfile is the public projection of a worker.
type WorkerProfile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Profile returns the public projection of w.
func (w Worker) Profile() WorkerProfile {
	return WorkerProfile{Name: w.Name, Avatar: w.Avatar}
}
