package models

// All timestamps are UTC epoch seconds, matching the historical schema the
// mobile clients already sync against.

// User is looked up by phone number on every inbound message. Registration and
// credential handling live outside this service; nothing here writes users.
// Phone is deliberately not unique: the legacy schema never enforced it, which
// is why the webhook treats any non-single match as an identity failure.
type User struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"column:username"`
	Phone     string `gorm:"column:phone;index"`
	CreatedAt int64  `gorm:"column:created_at"`
}

// Experience is a tracked session. The most recently created experience is the
// implicit target of every inbound command. TTime optionally names the
// consumption that acts as T-zero for relative note timestamps (0 = unset).
type Experience struct {
	ID    int64  `gorm:"primaryKey"`
	Title string `gorm:"column:title"`
	Date  int64  `gorm:"column:date"`
	Notes string `gorm:"column:notes"`
	TTime int64  `gorm:"column:ttime"`
	Owner int64  `gorm:"column:owner;index"`
}

// Consumption is a dosing event inside an experience.
type Consumption struct {
	ID           int64   `gorm:"primaryKey"`
	Date         int64   `gorm:"column:date"`
	Count        float64 `gorm:"column:count"`
	DrugID       int64   `gorm:"column:drug_id"`
	MethodID     int64   `gorm:"column:method_id"`
	Location     string  `gorm:"column:location"`
	ExperienceID int64   `gorm:"column:experience_id;index"`
	Owner        int64   `gorm:"column:owner;index"`
}

type Drug struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"column:name"`
	Unit  string `gorm:"column:unit"`
	Owner int64  `gorm:"column:owner;index"`
}

type Method struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"column:name"`
	Owner int64  `gorm:"column:owner;index"`
}

// Media is a stored upload. AssociationType/Association form a polymorphic
// reference (currently "experience" or "drug").
type Media struct {
	ID              int64  `gorm:"primaryKey"`
	Filename        string `gorm:"column:filename"`
	Title           string `gorm:"column:title"`
	Date            int64  `gorm:"column:date"`
	AssociationType string `gorm:"column:association_type"`
	Association     int64  `gorm:"column:association"`
	Explicit        bool   `gorm:"column:explicit"`
	Favorite        bool   `gorm:"column:favorite"`
	Owner           int64  `gorm:"column:owner;index"`
}
