package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"civicdesk-backend/control"
)

// Request is a citizen request under control. ControlStatus is derived from
// (DueDate, Status, now) and cached here; readers must tolerate staleness
// between recomputation points.
type Request struct {
	Id string `json:"id" gorm:"primaryKey"`

	// Citizen identity / contact
	FullName string `json:"full_name" gorm:"not null"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`

	// Classification (validated against the nomenclature tables)
	TypeId        uint `json:"type_id" gorm:"not null;index"`
	TopicId       uint `json:"topic_id" gorm:"not null;index"`
	SocialGroupId uint `json:"social_group_id"`
	IntakeFormId  uint `json:"intake_form_id"`

	Description string `json:"description" gorm:"type:text"`
	Address     string `json:"address"`
	Territory   string `json:"territory" gorm:"index"`

	Status   Status   `json:"status" gorm:"type:varchar(20);not null;index"`
	Priority Priority `json:"priority" gorm:"type:varchar(10);not null"`

	ExecutorId *string `json:"executor_id" gorm:"index"`
	Executor   *User   `json:"executor,omitempty" gorm:"foreignKey:ExecutorId;references:Id"`

	DueDate       *time.Time     `json:"due_date" gorm:"index"`
	ControlStatus control.Status `json:"control_status" gorm:"type:varchar(15);not null;default:no;index"`

	RemovedFromControlAt     *time.Time `json:"removed_from_control_at"`
	RemovedFromControlBy     string     `json:"removed_from_control_by"`
	RemovedFromControlByUser *string    `json:"removed_from_control_by_user_id" gorm:"column:removed_from_control_by_user_id"`

	Attachments []Attachment `json:"attachments" gorm:"foreignKey:RequestId;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Request) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if r.Id == "" {
		r.Id = uuid.NewString()
	}
	return
}

// Attachment is a stored file linked to a request. The bytes live on the
// filesystem; only metadata is kept here.
type Attachment struct {
	Id          uint      `json:"id" gorm:"primaryKey"`
	RequestId   string    `json:"-" gorm:"index;not null"`
	FileName    string    `json:"file_name" gorm:"not null"`
	StoragePath string    `json:"-" gorm:"not null"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
