package db

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sampleNames = []string{
	"Lerato", "Kagiso", "Zanele", "Bongani", "Palesa", "Tshepo", "Naledi", "Mandla", "Ayanda", "Sibusiso",
	"Refilwe", "Themba", "Dineo", "Lwazi", "Boitumelo", "Karabo", "Nthabiseng", "Vusi", "Precious", "Neo",
}

// SampleEmail is the address used for the i-th sample profile (1-based).
func SampleEmail(i int) string {
	return fmt.Sprintf("sample%d@tembichat.dev", i)
}

// SeedSampleProfiles populates the database with community profiles and swipes
// so discovery has something to show in development.
//
// Behavior:
//  1. Skips entirely if the first sample profile already exists (idempotent).
//  2. Creates 20 users (10 male, 10 female, ages 20-39) with hashed passwords.
//  3. Generates swipes with ~70% likes; every 3rd pair is made mutual and
//     gets a Match row.
//
// Compatible with both MySQL and SQLite.
func SeedSampleProfiles(db *gorm.DB, bcryptCost int) error {
	var existing int64
	if err := db.Model(&User{}).Where("email = ?", SampleEmail(1)).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to check sample data: %w", err)
	}
	if existing > 0 {
		return nil
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := NowUTC()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// --- Seed Users (10 male, 10 female) ---
	users := make([]User, 0, len(sampleNames))
	for i := 1; i <= len(sampleNames); i++ {
		gender, pref := GenderMale, PreferFemale
		if i > 10 {
			gender, pref = GenderFemale, PreferMale
		}
		lastActive := now.Add(-time.Duration(r.Intn(500)) * time.Hour)

		users = append(users, User{
			ID:           uuid.NewString(),
			Email:        SampleEmail(i),
			PasswordHash: string(hash),
			Name:         sampleNames[i-1],
			Age:          20 + r.Intn(20),
			Gender:       gender,
			Location:     "Tembisa, South Africa",
			Photos:       []string{},
			Videos:       []string{},
			Gifs:         []string{},
			Hobbies:      []string{},
			Preferences:  Preferences{AgeMin: 18, AgeMax: 50, Gender: pref, Distance: 50},
			Settings: Settings{
				ShowOnlineStatus: true, EnableReadReceipts: true, ChatNotifications: true,
				DarkMode: true, Language: "English",
			},
			Plan:             PlanFree,
			MessageCount:     20,
			ImageUploadCount: 5,
			LastActive:       lastActive,
			SessionExpiry:    lastActive,
		})
	}
	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	// --- Seed Swipes ---
	onConflict := clause.OnConflict{DoNothing: true}
	counter := 0
	for _, actor := range users {
		for j := 0; j < 8; j++ { // each user decides on ~8 others
			target := users[r.Intn(len(users))]
			if actor.ID == target.ID || actor.Gender == target.Gender {
				continue
			}

			// like probability 70%
			dir := DirectionDislike
			if r.Intn(100) < 70 {
				dir = DirectionLike
			}

			// guarantee mutual likes every 3rd pair
			mutual := counter%3 == 0
			if mutual {
				dir = DirectionLike
				recip := Swipe{ID: uuid.NewString(), ActorID: target.ID, TargetID: actor.ID, Direction: DirectionLike, CreatedAt: now}
				db.Clauses(onConflict).Create(&recip)
			}

			swipe := Swipe{ID: uuid.NewString(), ActorID: actor.ID, TargetID: target.ID, Direction: dir, CreatedAt: now}
			if err := db.Clauses(onConflict).Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}

			// an earlier dislike on either side wins, so only pair up real mutual likes
			if dir == DirectionLike {
				var likes int64
				db.Model(&Swipe{}).
					Where("((actor_id = ? AND target_id = ?) OR (actor_id = ? AND target_id = ?)) AND direction = ?",
						actor.ID, target.ID, target.ID, actor.ID, DirectionLike).
					Count(&likes)
				if likes == 2 {
					a, b := OrderedPair(actor.ID, target.ID)
					db.Clauses(onConflict).Create(&Match{ID: uuid.NewString(), UserA: a, UserB: b, MatchedAt: now})
				}
			}

			counter++
		}
	}

	return nil
}
