package identity

import (
	"strings"

	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
)

// ProfilePatch lists every field a user may change about themselves.
// A nil field is left as is; JSON keys not declared here are ignored.
type ProfilePatch struct {
	Name            *string           `json:"name"`
	Age             *int              `json:"age"`
	Bio             *string           `json:"bio"`
	Photos          *[]string         `json:"photos"`
	Videos          *[]string         `json:"videos"`
	Gifs            *[]string         `json:"gifs"`
	Hobbies         *[]string         `json:"hobbies"`
	FirstImpression *string           `json:"firstImpression"`
	BackgroundImage *string           `json:"backgroundImage"`
	Preferences     *PreferencesPatch `json:"preferences"`
	Settings        *SettingsPatch    `json:"settings"`
}

type PreferencesPatch struct {
	AgeMin   *int                 `json:"ageMin"`
	AgeMax   *int                 `json:"ageMax"`
	Gender   *db.GenderPreference `json:"gender"`
	Distance *int                 `json:"distance"`
}

type SettingsPatch struct {
	ShowOnlineStatus   *bool   `json:"showOnlineStatus"`
	EnableReadReceipts *bool   `json:"enableReadReceipts"`
	ChatNotifications  *bool   `json:"chatNotifications"`
	DarkMode           *bool   `json:"darkMode"`
	Language           *string `json:"language"`
	Privacy            *bool   `json:"privacy"`
}

// apply validates the patch against u and writes it. u is untouched when
// validation fails.
func (p ProfilePatch) apply(u *db.User) error {
	next := *u

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return svcErr.InvalidArgument("name cannot be blank", "name")
		}
		next.Name = name
	}
	if p.Age != nil {
		if *p.Age < minAge || *p.Age > maxAge {
			return svcErr.ErrAgeOutOfRange.WithFields("age")
		}
		next.Age = *p.Age
	}
	setString(&next.Bio, p.Bio)
	setString(&next.FirstImpression, p.FirstImpression)
	setString(&next.BackgroundImage, p.BackgroundImage)
	setList(&next.Photos, p.Photos)
	setList(&next.Videos, p.Videos)
	setList(&next.Gifs, p.Gifs)
	setList(&next.Hobbies, p.Hobbies)

	if pp := p.Preferences; pp != nil {
		prefs := next.Preferences
		setInt(&prefs.AgeMin, pp.AgeMin)
		setInt(&prefs.AgeMax, pp.AgeMax)
		setInt(&prefs.Distance, pp.Distance)
		if pp.Gender != nil {
			prefs.Gender = *pp.Gender
		}
		if err := validatePreferences(prefs); err != nil {
			return err
		}
		next.Preferences = prefs
	}

	if sp := p.Settings; sp != nil {
		setBool(&next.Settings.ShowOnlineStatus, sp.ShowOnlineStatus)
		setBool(&next.Settings.EnableReadReceipts, sp.EnableReadReceipts)
		setBool(&next.Settings.ChatNotifications, sp.ChatNotifications)
		setBool(&next.Settings.DarkMode, sp.DarkMode)
		setBool(&next.Settings.Privacy, sp.Privacy)
		setString(&next.Settings.Language, sp.Language)
	}

	*u = next
	return nil
}

func validatePreferences(p db.Preferences) error {
	switch p.Gender {
	case db.PreferMale, db.PreferFemale, db.PreferBoth:
	default:
		return svcErr.InvalidArgument("preferred gender must be male, female or both", "preferences.gender")
	}
	if p.AgeMin < minAge || p.AgeMax > maxAge || p.AgeMin > p.AgeMax {
		return svcErr.InvalidArgument("age range must lie within 18-100 with min <= max", "preferences.ageMin", "preferences.ageMax")
	}
	if p.Distance < 0 {
		return svcErr.InvalidArgument("distance cannot be negative", "preferences.distance")
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setList(dst *[]string, v *[]string) {
	if v == nil {
		return
	}
	if *v == nil {
		*dst = []string{}
		return
	}
	*dst = append([]string(nil), (*v)...)
}
