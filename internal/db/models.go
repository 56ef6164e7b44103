package db

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// GenderPreference is who a user wants to discover.
type GenderPreference string

const (
	PreferMale   GenderPreference = "male"
	PreferFemale GenderPreference = "female"
	PreferBoth   GenderPreference = "both"
)

type Plan string

const (
	PlanFree  Plan = "free"
	PlanBasic Plan = "basic"
	PlanPlus  Plan = "plus"
	PlanPro   Plan = "pro"
)

type Direction string

const (
	DirectionLike    Direction = "like"
	DirectionDislike Direction = "dislike"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodFastPay      PaymentMethod = "fastpay"
	MethodOzow         PaymentMethod = "ozow"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// Unlimited is the quota sentinel stored for pro-tier counters.
const Unlimited = 999999

// Preferences drive the discover filter.
type Preferences struct {
	AgeMin   int              `gorm:"not null;default:18" json:"ageMin"`
	AgeMax   int              `gorm:"not null;default:50" json:"ageMax"`
	Gender   GenderPreference `gorm:"size:8;not null;default:both" json:"gender"`
	Distance int              `gorm:"not null;default:50" json:"distance"`
}

type Settings struct {
	ShowOnlineStatus   bool   `json:"showOnlineStatus"`
	EnableReadReceipts bool   `json:"enableReadReceipts"`
	ChatNotifications  bool   `json:"chatNotifications"`
	DarkMode           bool   `json:"darkMode"`
	Language           string `gorm:"size:32" json:"language"`
	Privacy            bool   `json:"privacy"`
}

// User table. The credential hash never leaves the process: it has no JSON
// representation, so every serialized user is redacted.
type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Email        string `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	Name            string   `gorm:"size:64;not null" json:"name"`
	Age             int      `gorm:"not null;index" json:"age"`
	Gender          Gender   `gorm:"size:8;not null;index" json:"gender"`
	Bio             string   `gorm:"size:1024" json:"bio"`
	Location        string   `gorm:"size:128" json:"location"`
	Photos          []string `gorm:"serializer:json" json:"photos"`
	Videos          []string `gorm:"serializer:json" json:"videos"`
	Gifs            []string `gorm:"serializer:json" json:"gifs"`
	Hobbies         []string `gorm:"serializer:json" json:"hobbies"`
	FirstImpression string   `gorm:"size:255" json:"firstImpression"`
	BackgroundImage string   `gorm:"size:255" json:"backgroundImage"`

	Preferences Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	Settings    Settings    `gorm:"embedded;embeddedPrefix:setting_" json:"settings"`

	Plan             Plan `gorm:"size:8;not null;default:free" json:"planType"`
	IsPremium        bool `gorm:"not null;default:false" json:"isPremium"`
	MessageCount     int  `gorm:"not null" json:"messageCount"`
	ImageUploadCount int  `gorm:"not null" json:"imageUploadCount"`
	IsDemo           bool `gorm:"not null;default:false" json:"isDemo"`

	LastActive    time.Time `json:"lastActive"`
	SessionExpiry time.Time `json:"sessionExpiry"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Swipe represents an actor's like/dislike on a target.
//
// Unique index uniq_swipe_actor_target(actor_id, target_id):
//   - At most one swipe per ordered pair; a repeated swipe is a no-op.
//
// Index idx_swipe_target_direction(target_id, direction, created_at):
//   - Serves "who liked me" lists and counts.
type Swipe struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ActorID   string    `gorm:"size:36;not null;uniqueIndex:uniq_swipe_actor_target,priority:1" json:"actorId"`
	TargetID  string    `gorm:"size:36;not null;uniqueIndex:uniq_swipe_actor_target,priority:2;index:idx_swipe_target_direction,priority:1" json:"targetId"`
	Direction Direction `gorm:"size:8;not null;index:idx_swipe_target_direction,priority:2" json:"direction"`
	CreatedAt time.Time `gorm:"not null;index:idx_swipe_target_direction,priority:3" json:"timestamp"`
}

// Match is an unordered pair, stored normalized so UserA < UserB.
// The unique index makes a second insert for the same pair a no-op.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserA     string    `gorm:"size:36;not null;uniqueIndex:uniq_match_pair,priority:1" json:"userA"`
	UserB     string    `gorm:"size:36;not null;uniqueIndex:uniq_match_pair,priority:2;index" json:"userB"`
	MatchedAt time.Time `gorm:"not null" json:"matchedAt"`
}

// Other returns the participant that is not userID.
func (m Match) Other(userID string) string {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

// OrderedPair normalizes two user ids into (low, high).
func OrderedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// NewMessageID returns a UUIDv7. Within one process the ids increase
// monotonically, so ordering by (created_at, id) keeps insertion order for
// messages that share a timestamp.
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

type Message struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	SenderID   string    `gorm:"size:36;not null;index:idx_message_pair,priority:1" json:"senderId"`
	ReceiverID string    `gorm:"size:36;not null;index:idx_message_pair,priority:2;index:idx_message_receiver_read,priority:1" json:"receiverId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Read       bool      `gorm:"column:is_read;not null;default:false;index:idx_message_receiver_read,priority:2" json:"read"`
	IsDemo     bool      `gorm:"not null;default:false" json:"isDemo"`
	CreatedAt  time.Time `gorm:"not null" json:"timestamp"`
}

type Payment struct {
	ID                 string        `gorm:"primaryKey;size:36" json:"id"`
	UserID             string        `gorm:"size:36;not null;index" json:"userId"`
	Plan               Plan          `gorm:"size:8;not null" json:"plan"`
	Amount             int           `gorm:"not null" json:"amount"`
	Currency           string        `gorm:"size:3;not null" json:"currency"`
	Status             PaymentStatus `gorm:"size:16;not null;index" json:"status"`
	Method             PaymentMethod `gorm:"size:16;not null" json:"paymentMethod"`
	TransactionID      string        `gorm:"size:64;not null;uniqueIndex" json:"transactionId"`
	ConfirmedReference string        `gorm:"size:128" json:"confirmedReference,omitempty"`
	CreatedAt          time.Time     `gorm:"not null" json:"createdAt"`
	CompletedAt        *time.Time    `json:"completedAt,omitempty"`
}

// AllModels lists every table for AutoMigrate.
func AllModels() []any {
	return []any{&User{}, &Swipe{}, &Match{}, &Message{}, &Payment{}}
}
