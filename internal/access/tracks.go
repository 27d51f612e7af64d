package access

import "github.com/Spok95/learning-platform-bot/internal/models"

// compatible: какие теги юнита видит ученик данного профиля.
// Юниты без тега или с "All" видны всем, это проверяется отдельно.
var compatible = map[models.Track][]models.Track{
	models.TrackScientific: {models.TrackScientific, models.TrackScience, models.TrackMath},
	models.TrackScience:    {models.TrackScience, models.TrackScientific},
	models.TrackMath:       {models.TrackMath, models.TrackScientific},
	models.TrackLiterary:   {models.TrackLiterary},
	models.TrackAll:        {models.TrackAll},
}

// Compatible сообщает, доступен ли юнит с тегом unitTrack ученику профиля userTrack.
func Compatible(userTrack, unitTrack models.Track) bool {
	if unitTrack == "" || unitTrack == models.TrackAll {
		return true
	}
	for _, t := range compatible[userTrack] {
		if t == unitTrack {
			return true
		}
	}
	return false
}

// FilterUnits оставляет юниты, совместимые с профилем ученика.
func FilterUnits(userTrack models.Track, units []models.Unit) []models.Unit {
	out := make([]models.Unit, 0, len(units))
	for _, u := range units {
		if Compatible(userTrack, u.Track) {
			out = append(out, u)
		}
	}
	return out
}
