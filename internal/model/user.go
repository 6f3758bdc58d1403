package model

import (
	"time"
)

type UserRole string

const (
	Student        UserRole = "student"
	Contributor    UserRole = "contributor"
	Reviewer       UserRole = "reviewer"
	Staff          UserRole = "staff"
	GradePublisher UserRole = "grade_publisher"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string   `gorm:"size:100;not null" json:"Name"`
	Title     string   `gorm:"size:100" json:"Title"`
	Email     string   `gorm:"size:100;unique;not null" json:"Email"`
	Password  string   `gorm:"size:100;not null" json:"-"`
	Role      UserRole `gorm:"type:enum('student','contributor','reviewer','staff','grade_publisher');default:'student'" json:"Role"`
	Language  string   `gorm:"size:10;default:'en'" json:"Language"`
	Disabled  bool     `gorm:"default:false" json:"Disabled"`
	LastLogin time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"LastLogin"`
	LastSeen  time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"LastSeen"`

	// 代理人：可以替本人查看其贡献的评教结果
	Delegates []*User `gorm:"many2many:user_delegates;joinForeignKey:UserID;joinReferences:DelegateID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsReviewer() bool {
	return u.Role == Reviewer || u.Role == Staff
}

func (u *User) IsStaff() bool {
	return u.Role == Staff
}
