package db

import "time"

// DemoAccount describes a system-owned profile every new user is matched with.
type DemoAccount struct {
	ID              string
	Email           string
	Name            string
	Age             int
	Gender          Gender
	Bio             string
	Hobbies         []string
	FirstImpression string
	Preferences     Preferences
	// Greeting is the unread demo message a new user finds in the chat.
	Greeting string
	// GreetingAge backdates the greeting relative to registration.
	GreetingAge time.Duration
}

// DemoCredential is the shared password of the demo accounts.
const DemoCredential = "demo123"

// DemoAccounts is the fixed demo set, in seeding order.
var DemoAccounts = []DemoAccount{
	{
		ID:              "demo1",
		Email:           "demo1@tembichat.com",
		Name:            "Thandi",
		Age:             24,
		Gender:          GenderFemale,
		Bio:             "Love dancing and good vibes! Looking for someone special 💕",
		Hobbies:         []string{"Dancing", "Music", "Cooking", "Fitness"},
		FirstImpression: "Bubbly and energetic",
		Preferences:     Preferences{AgeMin: 22, AgeMax: 35, Gender: PreferMale, Distance: 25},
		Greeting:        "Hey! I see you're new here. Upgrade to Pro to unlock unlimited chats and see who likes you! 😘",
		GreetingAge:     30 * time.Minute,
	},
	{
		ID:              "demo2",
		Email:           "demo2@tembichat.com",
		Name:            "Sipho",
		Age:             28,
		Gender:          GenderMale,
		Bio:             "Entrepreneur and fitness enthusiast. Let's build something together! 💪",
		Hobbies:         []string{"Business", "Gym", "Travel", "Photography"},
		FirstImpression: "Ambitious and driven",
		Preferences:     Preferences{AgeMin: 20, AgeMax: 30, Gender: PreferFemale, Distance: 30},
		Greeting:        "What's up! Pro members get the best experience here. Want to chat more? 💪",
		GreetingAge:     45 * time.Minute,
	},
	{
		ID:              "demo3",
		Email:           "demo3@tembichat.com",
		Name:            "Nomsa",
		Age:             26,
		Gender:          GenderFemale,
		Bio:             "Artist and dreamer. Love deep conversations and good food 🎨",
		Hobbies:         []string{"Art", "Reading", "Cooking", "Nature"},
		FirstImpression: "Creative and thoughtful",
		Preferences:     Preferences{AgeMin: 24, AgeMax: 35, Gender: PreferBoth, Distance: 20},
		Greeting:        "Hi there! I love connecting with new people. Upgrade to Pro for unlimited messages! 🎨",
		GreetingAge:     time.Hour,
	},
}

// DemoUserIDs returns the ids of DemoAccounts.
func DemoUserIDs() []string {
	ids := make([]string, 0, len(DemoAccounts))
	for _, a := range DemoAccounts {
		ids = append(ids, a.ID)
	}
	return ids
}

// IsDemoUser reports whether id belongs to a demo account.
func IsDemoUser(id string) bool {
	for _, a := range DemoAccounts {
		if a.ID == id {
			return true
		}
	}
	return false
}
